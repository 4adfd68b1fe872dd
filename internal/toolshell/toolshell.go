// Package toolshell defines the uniform tool contract — name,
// description, parameter schema, example usage, run — plus the
// argument-parsing and path-resolution conventions every tool shares:
// --flag=value and --flag value both work, flag matching is
// case-insensitive, single and double dashes are equivalent, and bare
// filenames resolve under the working directory.
//
// Parsing is hand-rolled around string splitting rather than a CLI
// framework; the dual flag syntax and case-insensitive matching do not
// map onto stdlib flag.
package toolshell

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/haldane-gis/geocore/internal/fsutil"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

// FileKind narrows what an ExistingFile/NewFile/FileList parameter
// accepts.
type FileKind int

const (
	FileAny FileKind = iota
	FileRaster
	FileLidar
	FileVectorAny
	FileVectorPoint
	FileVectorLine
	FileVectorPolygon
	FileHTML
)

// ParameterKind enumerates the parameter types a tool can declare.
type ParameterKind int

const (
	KindExistingFile ParameterKind = iota
	KindNewFile
	KindFloat
	KindInteger
	KindBoolean
	KindString
	KindOptionList
	KindFileList
	KindDirectory
	KindStringOrNumber
)

// Parameter is one descriptor in a tool's ordered parameter schema.
type Parameter struct {
	Name        string
	Flags       []string // accepted flag spellings, without dashes
	Description string
	Kind        ParameterKind
	File        FileKind // meaningful for the file-typed kinds
	Choices     []string // meaningful for KindOptionList
	Default     string
	Optional    bool
}

// Tool is the uniform interface the CLI shell consumes.
type Tool interface {
	Name() string
	Description() string
	Toolbox() string
	ExampleUsage() string
	Parameters() []Parameter
	Run(args ParsedArgs, workingDir string, verbose bool) error
}

// ParsedArgs is the flag -> value view of a tool invocation's arguments.
// Keys are lowercased flag names without dashes; a flag given with no
// value is stored as "true" so boolean switches read naturally.
type ParsedArgs map[string]string

func normalizeFlag(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "-"))
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ParseArgs turns a raw argument list into ParsedArgs. Both
// --flag=value and --flag value are accepted; a flag followed by
// another flag (or nothing) becomes a boolean "true". A dash-leading
// token that parses as a number is treated as a value, so
// --nodata -9999 does what the user meant.
func ParseArgs(raw []string) ParsedArgs {
	out := make(ParsedArgs, len(raw))
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		if !strings.HasPrefix(tok, "-") {
			continue
		}
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			out[normalizeFlag(tok[:eq])] = tok[eq+1:]
			continue
		}
		flag := normalizeFlag(tok)
		if i+1 < len(raw) {
			next := raw[i+1]
			if !strings.HasPrefix(next, "-") || looksNumeric(next) {
				out[flag] = next
				i++
				continue
			}
		}
		out[flag] = "true"
	}
	return out
}

// Get returns the value for any of the given flag spellings,
// case-insensitively.
func (a ParsedArgs) Get(flags ...string) (string, bool) {
	for _, f := range flags {
		if v, ok := a[normalizeFlag(f)]; ok {
			return v, true
		}
	}
	return "", false
}

// GetRequired is Get but a missing flag is an InvalidInput error naming
// the primary spelling.
func (a ParsedArgs) GetRequired(flags ...string) (string, error) {
	if v, ok := a.Get(flags...); ok {
		return v, nil
	}
	return "", gcerr.New(gcerr.InvalidInput, "toolshell.ParseArgs", "required flag --"+flags[0]+" is missing")
}

// GetFloat parses a float-valued flag, returning def when absent.
func (a ParsedArgs) GetFloat(def float64, flags ...string) (float64, error) {
	v, ok := a.Get(flags...)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, gcerr.Wrap(gcerr.InvalidInput, "toolshell.ParseArgs", "--"+flags[0]+" wants a number", err)
	}
	return f, nil
}

// GetInt parses an integer-valued flag, returning def when absent.
func (a ParsedArgs) GetInt(def int, flags ...string) (int, error) {
	v, ok := a.Get(flags...)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, gcerr.Wrap(gcerr.InvalidInput, "toolshell.ParseArgs", "--"+flags[0]+" wants an integer", err)
	}
	return n, nil
}

// GetBool reports whether a boolean flag is present and truthy.
func (a ParsedArgs) GetBool(flags ...string) bool {
	v, ok := a.Get(flags...)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// ResolvePath resolves a user-supplied file path against the working
// directory: paths containing no separator are taken as bare filenames
// under workingDir; everything else passes through untouched.
func ResolvePath(workingDir, path string) string {
	if path == "" || strings.ContainsRune(path, '/') || strings.ContainsRune(path, filepath.Separator) {
		return path
	}
	return filepath.Join(workingDir, path)
}

// EnsureExtension appends def (without a dot) when path has no
// extension, so an output flag may omit .tif/.html.
func EnsureExtension(path, def string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + "." + def
}

// ValidateArgs checks parsed args against a tool's parameter schema
// before the tool runs: required flags must be present, existing-file
// inputs must exist on fsys, and option-list values must be among the
// declared choices. The filesystem is injected so tests can validate
// against an in-memory tree.
func ValidateArgs(fsys fsutil.FileSystem, tool Tool, args ParsedArgs, workingDir string) error {
	const op = "toolshell.ValidateArgs"
	for _, p := range tool.Parameters() {
		v, ok := args.Get(p.Flags...)
		if !ok {
			if !p.Optional && p.Default == "" {
				return gcerr.New(gcerr.InvalidInput, op,
					tool.Name()+": required flag --"+p.Flags[0]+" is missing")
			}
			continue
		}
		switch p.Kind {
		case KindExistingFile:
			path := ResolvePath(workingDir, strings.TrimSpace(v))
			if !fsys.Exists(path) {
				return gcerr.New(gcerr.NotFound, op, path)
			}
		case KindFileList:
			for _, part := range strings.Split(v, ";") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				path := ResolvePath(workingDir, part)
				if !fsys.Exists(path) {
					return gcerr.New(gcerr.NotFound, op, path)
				}
			}
		case KindOptionList:
			found := false
			for _, c := range p.Choices {
				if strings.EqualFold(c, v) {
					found = true
					break
				}
			}
			if !found {
				return gcerr.New(gcerr.InvalidInput, op,
					"--"+p.Flags[0]+" must be one of "+strings.Join(p.Choices, ", "))
			}
		}
	}
	return nil
}

// Registry holds the tools the shell can run, keyed case-insensitively
// by name.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering two tools whose names differ only
// by case is a programming error and panics at startup.
func (r *Registry) Register(t Tool) {
	key := strings.ToLower(t.Name())
	if _, dup := r.tools[key]; dup {
		panic("toolshell: duplicate tool name " + t.Name())
	}
	r.tools[key] = t
}

// Lookup finds a tool by case-insensitive name.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.tools[strings.ToLower(name)]
	if !ok {
		return nil, gcerr.New(gcerr.NotFound, "toolshell.Lookup", "no tool named "+name)
	}
	return t, nil
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}
