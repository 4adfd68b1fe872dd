// Package demotools holds the worked example tools that drive every core
// component end-to-end: a terrain-slope tool and an integral-image mean
// filter for the raster/pipeline stack, a conditional-evaluation tool
// for the expression evaluator, and a LiDAR noise filter for the LAS
// model and fixed-radius index. They stand in for the full tool
// catalogue, which is a consumer of this substrate rather than part of
// it.
package demotools

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haldane-gis/geocore/internal/gcerr"
	"github.com/haldane-gis/geocore/internal/raster"
	"github.com/haldane-gis/geocore/internal/toolshell"
)

// Output is where tool progress lines land; tests swap it for a buffer.
var Output io.Writer = os.Stdout

// RegisterAll adds every demo tool to reg.
func RegisterAll(reg *toolshell.Registry) {
	reg.Register(&Slope{})
	reg.Register(&ConditionalEvaluation{})
	reg.Register(&RasterCalculator{})
	reg.Register(&MeanFilter{})
	reg.Register(&FilterLidarNoise{})
}

// openRasterInput resolves and opens a required raster-input flag.
func openRasterInput(args toolshell.ParsedArgs, workingDir string, flags ...string) (*raster.Raster, string, error) {
	val, err := args.GetRequired(flags...)
	if err != nil {
		return nil, "", err
	}
	path := toolshell.ResolvePath(workingDir, strings.TrimSpace(val))
	r, err := raster.Open(path, raster.ModeReadFull)
	if err != nil {
		return nil, "", err
	}
	return r, path, nil
}

// resolveRasterOutput resolves a required output flag, defaulting the
// extension to .tif when none is given.
func resolveRasterOutput(args toolshell.ParsedArgs, workingDir string, flags ...string) (string, error) {
	val, err := args.GetRequired(flags...)
	if err != nil {
		return "", err
	}
	return toolshell.EnsureExtension(toolshell.ResolvePath(workingDir, strings.TrimSpace(val)), "tif"), nil
}

// finishRasterOutput appends the audit metadata every derived raster
// carries, refreshes min/max, and writes the file.
func finishRasterOutput(out *raster.Raster, outputPath, toolName string, details ...string) error {
	out.AddMetadataEntry("Created by the " + toolName + " tool")
	for _, d := range details {
		out.AddMetadataEntry(d)
	}
	out.UpdateMinMax()
	return raster.Write(out, outputPath)
}

// requireSameShape rejects paired rasters whose grids disagree.
func requireSameShape(op string, a, b *raster.Raster) error {
	if a.Rows() != b.Rows() || a.Columns() != b.Columns() {
		return gcerr.New(gcerr.InvalidInput, op,
			fmt.Sprintf("input dimensions disagree: %dx%d vs %dx%d", a.Rows(), a.Columns(), b.Rows(), b.Columns()))
	}
	return nil
}
