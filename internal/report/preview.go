package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/haldane-gis/geocore/internal/raster"
)

// rasterGrid adapts a Raster to plotter.GridXYZ. The heatmap wants y
// increasing with the row index, while raster row 0 is the northern
// edge, so rows are flipped here. NoData maps to NaN, which the
// heatmap leaves undrawn.
type rasterGrid struct {
	r *raster.Raster
}

func (g rasterGrid) Dims() (c, r int) { return g.r.Columns(), g.r.Rows() }

func (g rasterGrid) Z(c, r int) float64 {
	v := g.r.Value(g.r.Rows()-1-r, c)
	if v == g.r.NoData() {
		return math.NaN()
	}
	return v
}

func (g rasterGrid) X(c int) float64 { return g.r.GetXFromColumn(c) }

func (g rasterGrid) Y(r int) float64 { return g.r.GetYFromRow(g.r.Rows() - 1 - r) }

// HeatmapPNG renders r as a heatmap PNG.
func HeatmapPNG(r *raster.Raster) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "raster preview"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	h := plotter.NewHeatMap(rasterGrid{r: r}, palette.Heat(16, 1))
	p.Add(h)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("report: render heatmap: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("report: write heatmap: %w", err)
	}
	return buf.Bytes(), nil
}

// RasterPreview writes a self-contained HTML page for r: inline CSS,
// the heatmap embedded as a base64 data URI, and the raster's configs
// and metadata audit trail. No external resource references.
func RasterPreview(w io.Writer, name string, r *raster.Raster) error {
	png, err := HeatmapPNG(r)
	if err != nil {
		return err
	}
	cfg := r.Configs
	fmt.Fprintf(w, previewHead, html.EscapeString(name))
	fmt.Fprintf(w, "<img alt=\"raster heatmap\" src=\"data:image/png;base64,%s\">\n",
		base64.StdEncoding.EncodeToString(png))
	fmt.Fprintf(w, "<table>\n")
	row := func(k string, v any) {
		fmt.Fprintf(w, "<tr><td>%s</td><td>%v</td></tr>\n", html.EscapeString(k), v)
	}
	row("rows", cfg.Rows)
	row("columns", cfg.Columns)
	row("north", cfg.North)
	row("south", cfg.South)
	row("east", cfg.East)
	row("west", cfg.West)
	row("resolution", fmt.Sprintf("%g x %g", cfg.ResolutionX, cfg.ResolutionY))
	row("nodata", cfg.NoData)
	row("data type", cfg.DataType)
	row("min", cfg.Min)
	row("max", cfg.Max)
	fmt.Fprintf(w, "</table>\n")
	if len(cfg.Metadata) > 0 {
		fmt.Fprintf(w, "<h2>Metadata</h2>\n<ul>\n")
		for _, m := range cfg.Metadata {
			fmt.Fprintf(w, "<li>%s</li>\n", html.EscapeString(m))
		}
		fmt.Fprintf(w, "</ul>\n")
	}
	_, err = fmt.Fprint(w, "</body>\n</html>\n")
	return err
}

const previewHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%[1]s</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-top: 1em; }
td { border: 1px solid #ccc; padding: 0.3em 0.8em; }
img { max-width: 100%%; border: 1px solid #ccc; }
h1, h2 { font-weight: normal; }
</style>
</head>
<body>
<h1>%[1]s</h1>
`
