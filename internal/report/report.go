// Package report renders run-level HTML output: an execution summary
// of recent tool invocations charted with go-echarts, and a raster
// preview page embedding a gonum/plot heatmap as an inline base64 PNG.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/haldane-gis/geocore/internal/runlog"
)

// Summary renders an HTML page charting the elapsed time of each
// invocation, newest last so the bar order reads chronologically.
func Summary(w io.Writer, invs []*runlog.Invocation) error {
	labels := make([]string, 0, len(invs))
	elapsed := make([]opts.BarData, 0, len(invs))
	for i := len(invs) - 1; i >= 0; i-- {
		inv := invs[i]
		label := inv.ToolName
		if inv.Status == "error" {
			label += " (failed)"
		}
		labels = append(labels, label)
		elapsed = append(elapsed, opts.BarData{
			Value: float64(inv.Elapsed()) / float64(time.Millisecond),
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "geocore run summary", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Tool execution summary",
			Subtitle: fmt.Sprintf("%d invocations", len(invs)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "elapsed (ms)"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("elapsed", elapsed)

	return bar.Render(w)
}
