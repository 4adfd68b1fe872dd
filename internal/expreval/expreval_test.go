package expreval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConditionalEvaluationWorkedExample(t *testing.T) {
	ev, err := Compile("value > 4 ? 1 : 0", "nodata")
	require.NoError(t, err)

	grid := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	want := [][]float64{{0, 0, 0}, {0, 1, 1}, {1, 1, 1}}

	for r, row := range grid {
		for c, v := range row {
			table := NewSymbolTable()
			table.Set("value", v)
			got, err := ev.Eval(table)
			require.NoError(t, err)
			require.Equal(t, want[r][c], got)
		}
	}
}

func TestShortCircuitAvoidsDivByZeroError(t *testing.T) {
	ev, err := Compile("false && (1/0 > 0)", "nodata")
	require.NoError(t, err)
	got, err := ev.Eval(NewSymbolTable())
	require.NoError(t, err)
	require.Equal(t, 0.0, got)

	ev2, err := Compile("true || (1/0 > 0)", "nodata")
	require.NoError(t, err)
	got2, err := ev2.Eval(NewSymbolTable())
	require.NoError(t, err)
	require.Equal(t, 1.0, got2)
}

func TestDivisionByZeroWithoutShortCircuitIsNumericError(t *testing.T) {
	ev, err := Compile("value / denom", "nodata")
	require.NoError(t, err)
	table := NewSymbolTable()
	table.Set("value", 1)
	table.Set("denom", 0)
	_, err = ev.Eval(table)
	require.Error(t, err)
}

func TestMentionsNoData(t *testing.T) {
	ev, err := Compile("value == nodata", "nodata")
	require.NoError(t, err)
	require.True(t, ev.MentionsNoData())

	ev2, err := Compile("value + 1", "nodata")
	require.NoError(t, err)
	require.False(t, ev2.MentionsNoData())
}

func TestBuiltinFunctions(t *testing.T) {
	ev, err := Compile("round(abs(-3.7))", "nodata")
	require.NoError(t, err)
	got, err := ev.Eval(NewSymbolTable())
	require.NoError(t, err)
	require.Equal(t, 4.0, got)

	ev2, err := Compile("max(1, 5, 3)", "nodata")
	require.NoError(t, err)
	got2, err := ev2.Eval(NewSymbolTable())
	require.NoError(t, err)
	require.Equal(t, 5.0, got2)
}
