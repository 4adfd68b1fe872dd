// Package settings provides the process-wide configuration source:
// working directory, worker-count cap, verbosity, and the palette
// search path. It is loaded once at start and handed down to the tools
// that need it.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// DefaultConfigPath is where geocore looks for a settings file, relative
// to the process's current directory; the CLI has no flag that changes it.
const DefaultConfigPath = "geocore.settings.json"

// Settings is the process-wide settings source. Pointer fields
// distinguish "not set" from the zero value: a nil field means "fall
// back to the built-in default", not "explicitly zero".
type Settings struct {
	WorkingDirectory *string `json:"working_directory,omitempty"`
	MaxProcs         *int    `json:"max_procs,omitempty"`
	VerboseMode      *bool   `json:"verbose_mode,omitempty"`
	PaletteDirectory *string `json:"palette_directory,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// Empty returns a Settings with every field unset.
func Empty() *Settings { return &Settings{} }

// Load reads a settings file at path. A missing file is not an error: it
// simply yields an empty Settings, mirroring how a tool invocation that
// never configured geocore.settings.json should still run with defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return &s, nil
}

// Resolved is the read-only, fully-defaulted view tools actually consume.
type Resolved struct {
	WorkingDirectory string
	MaxProcs         int
	VerboseMode      bool
	PaletteDirectory string
}

// Resolve applies defaults over any unset field. MaxProcs defaults to
// runtime.NumCPU(), so the worker pool stays bounded by
// min(hardware concurrency, configured max) with the cap defaulting to
// the hardware concurrency when absent.
func (s *Settings) Resolve() Resolved {
	r := Resolved{
		WorkingDirectory: ".",
		MaxProcs:         runtime.NumCPU(),
		VerboseMode:      false,
		PaletteDirectory: "palettes",
	}
	if s == nil {
		return r
	}
	if s.WorkingDirectory != nil {
		r.WorkingDirectory = *s.WorkingDirectory
	}
	if s.MaxProcs != nil && *s.MaxProcs > 0 {
		r.MaxProcs = *s.MaxProcs
	}
	if s.VerboseMode != nil {
		r.VerboseMode = *s.VerboseMode
	}
	if s.PaletteDirectory != nil {
		r.PaletteDirectory = *s.PaletteDirectory
	}
	return r
}

// WithWorkingDirectory returns a copy of s with WorkingDirectory set,
// useful for the --wd CLI flag overriding whatever geocore.settings.json
// declared.
func (s *Settings) WithWorkingDirectory(dir string) *Settings {
	cp := *s
	cp.WorkingDirectory = ptrString(dir)
	return &cp
}

// WithVerbose returns a copy of s with VerboseMode set.
func (s *Settings) WithVerbose(v bool) *Settings {
	cp := *s
	cp.VerboseMode = ptrBool(v)
	return &cp
}

// WithMaxProcs returns a copy of s with MaxProcs set.
func (s *Settings) WithMaxProcs(n int) *Settings {
	cp := *s
	cp.MaxProcs = ptrInt(n)
	return &cp
}
