package demotools

import (
	"fmt"
	"strings"

	"github.com/haldane-gis/geocore/internal/lidar"
	"github.com/haldane-gis/geocore/internal/progress"
	"github.com/haldane-gis/geocore/internal/spatialindex"
	"github.com/haldane-gis/geocore/internal/toolshell"
)

// ASPRS classification codes for low and high noise.
const (
	classLowNoise  = 7
	classHighNoise = 18
)

// FilterLidarNoise removes noise points from a LAS tile: points already
// classified as noise, plus (when a search radius is given) points with
// no neighbour within the radius, found with the fixed-radius index.
// The output preserves the input's point format; the header count and
// z-bounds reflect the surviving points.
type FilterLidarNoise struct{}

func (FilterLidarNoise) Name() string { return "FilterLidarNoise" }
func (FilterLidarNoise) Description() string {
	return "Removes classified-noise and isolated points from a LAS file"
}
func (FilterLidarNoise) Toolbox() string { return "LiDAR Tools" }
func (FilterLidarNoise) ExampleUsage() string {
	return `geocore -r=FilterLidarNoise -v --wd="/data" -i=tile.las -o=clean.las --radius=2.0`
}

func (FilterLidarNoise) Parameters() []toolshell.Parameter {
	return []toolshell.Parameter{
		{Name: "Input file", Flags: []string{"i", "input"}, Description: "Input LAS file", Kind: toolshell.KindExistingFile, File: toolshell.FileLidar},
		{Name: "Output file", Flags: []string{"o", "output"}, Description: "Output LAS file", Kind: toolshell.KindNewFile, File: toolshell.FileLidar},
		{Name: "Search radius", Flags: []string{"radius"}, Description: "Isolation search radius in xy units; 0 disables the isolation test", Kind: toolshell.KindFloat, Default: "0", Optional: true},
	}
}

func (FilterLidarNoise) Run(args toolshell.ParsedArgs, workingDir string, verbose bool) error {
	inVal, err := args.GetRequired("i", "input")
	if err != nil {
		return err
	}
	outVal, err := args.GetRequired("o", "output")
	if err != nil {
		return err
	}
	radius, err := args.GetFloat(0, "radius")
	if err != nil {
		return err
	}
	inPath := toolshell.ResolvePath(workingDir, strings.TrimSpace(inVal))
	outPath := toolshell.EnsureExtension(toolshell.ResolvePath(workingDir, strings.TrimSpace(outVal)), "las")

	in, err := lidar.Open(inPath, lidar.ModeRead)
	if err != nil {
		return err
	}

	// Build the index before any lookups so readers never observe a
	// partial insert.
	var idx *spatialindex.Index
	if radius > 0 {
		idx = spatialindex.New(radius, spatialindex.SquaredEuclidean)
		for i := 0; i < in.NumberOfPoints(); i++ {
			x, y, z, err := in.GetTransformedCoords(i)
			if err != nil {
				return err
			}
			idx.InsertZ(x, y, z, i)
		}
	}

	out := lidar.InitializeUsingFile(in)
	rep := progress.NewReporter(Output, "FilterLidarNoise", in.NumberOfPoints(), verbose)
	kept := 0
	for i := 0; i < in.NumberOfPoints(); i++ {
		rec, err := in.GetRecord(i)
		if err != nil {
			return err
		}
		rep.Tick()
		if rec.Classification == classLowNoise || rec.Classification == classHighNoise {
			continue
		}
		x, y, z := in.TransformedCoords(rec)
		if idx != nil {
			neighbours := 0
			for _, res := range idx.Search(x, y) {
				if res.Payload.(int) != i {
					neighbours++
				}
			}
			if neighbours == 0 {
				continue
			}
		}
		if err := out.AddPointRecord(rec, x, y, z); err != nil {
			return err
		}
		kept++
	}

	rep.Println(fmt.Sprintf("FilterLidarNoise: kept %d of %d points", kept, in.NumberOfPoints()))
	return out.Write(outPath)
}
