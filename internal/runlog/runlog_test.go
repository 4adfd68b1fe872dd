package runlog

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldane-gis/geocore/internal/timeutil"
)

func openTestDB(t *testing.T, clock timeutil.Clock) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "geocore.runlog.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMigratesToLatest(t *testing.T) {
	db := openTestDB(t, nil)
	sub, err := fs.Sub(migrationsFS, "migrations")
	require.NoError(t, err)
	version, dirty, err := db.MigrateVersion(sub)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestBeginFinishRoundTrip(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1_700_000_000, 0))
	db := openTestDB(t, clock)

	inv, err := db.Begin("Slope", []string{"--input=dem.tif", "--output=slope.tif"}, "/data")
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(inv.ID))

	clock.Advance(3 * time.Second)
	require.NoError(t, db.Finish(inv, "/data/slope.tif", nil))

	recent, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	got := recent[0]
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, "Slope", got.ToolName)
	assert.Equal(t, []string{"--input=dem.tif", "--output=slope.tif"}, got.Args)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "/data/slope.tif", got.OutputPath)
	assert.Equal(t, 3*time.Second, got.Elapsed())
}

func TestFinishRecordsError(t *testing.T) {
	db := openTestDB(t, nil)
	inv, err := db.Begin("ConditionalEvaluation", []string{"--statement=value>"}, ".")
	require.NoError(t, err)
	require.NoError(t, db.Finish(inv, "", errors.New("invalid expression")))

	recent, err := db.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "error", recent[0].Status)
	assert.Contains(t, recent[0].ErrorMsg, "invalid expression")
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1_700_000_000, 0))
	db := openTestDB(t, clock)
	for _, name := range []string{"First", "Second", "Third"} {
		inv, err := db.Begin(name, nil, ".")
		require.NoError(t, err)
		require.NoError(t, db.Finish(inv, "", nil))
		clock.Advance(time.Minute)
	}
	recent, err := db.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Third", recent[0].ToolName)
	assert.Equal(t, "Second", recent[1].ToolName)
}

func TestAttachDebugServesRecentRuns(t *testing.T) {
	db := openTestDB(t, nil)
	inv, err := db.Begin("Slope", []string{"--input=dem.tif"}, ".")
	require.NoError(t, err)
	require.NoError(t, db.Finish(inv, "slope.tif", nil))

	mux := http.NewServeMux()
	require.NoError(t, db.AttachDebug(mux))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/recent-runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
