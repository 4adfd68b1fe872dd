// Command geocore is the geospatial toolbox shell: every tool is invoked as
//
//	geocore -r=<ToolName> [-v] [--wd=<working_dir>] [--<flag>=<value> ...]
//
// with exit code 0 on success and non-zero on any failure. The shell
// resolves settings, looks the tool up in the registry, records the
// invocation in the run ledger, and hands the parsed flags to the tool,
// adding --procs from the settings worker cap when the invocation gives
// none.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/haldane-gis/geocore/internal/demotools"
	"github.com/haldane-gis/geocore/internal/fsutil"
	"github.com/haldane-gis/geocore/internal/report"
	"github.com/haldane-gis/geocore/internal/runlog"
	"github.com/haldane-gis/geocore/internal/settings"
	"github.com/haldane-gis/geocore/internal/toolshell"
	"github.com/haldane-gis/geocore/internal/version"
)

const runLedgerName = "geocore.runlog.db"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "geocore: %v\n", err)
		os.Exit(1)
	}
}

func run(rawArgs []string) error {
	args := toolshell.ParseArgs(rawArgs)

	if args.GetBool("version") {
		fmt.Println(version.String())
		return nil
	}

	cfg, err := settings.Load(settings.DefaultConfigPath)
	if err != nil {
		return err
	}
	if wd, ok := args.Get("wd"); ok {
		cfg = cfg.WithWorkingDirectory(wd)
	}
	if args.GetBool("v") || args.GetBool("verbose") {
		cfg = cfg.WithVerbose(true)
	}
	if procs, err := args.GetInt(0, "maxprocs"); err != nil {
		return err
	} else if procs > 0 {
		cfg = cfg.WithMaxProcs(procs)
	}
	resolved := cfg.Resolve()

	reg := toolshell.NewRegistry()
	demotools.RegisterAll(reg)

	if args.GetBool("listtools") {
		for _, name := range reg.Names() {
			tool, _ := reg.Lookup(name)
			fmt.Printf("%-24s %s\n", name, tool.Description())
		}
		return nil
	}
	if name, ok := args.Get("toolhelp"); ok {
		return printToolHelp(reg, name)
	}

	name, ok := args.Get("r", "run")
	if !ok {
		usage()
		return fmt.Errorf("no tool named; use -r=<ToolName> (or --listtools)")
	}
	tool, err := reg.Lookup(name)
	if err != nil {
		return err
	}

	ledger, err := runlog.Open(filepath.Join(resolved.WorkingDirectory, runLedgerName), nil)
	if err != nil {
		return err
	}
	defer ledger.Close()

	inv, err := ledger.Begin(tool.Name(), rawArgs, resolved.WorkingDirectory)
	if err != nil {
		return err
	}
	// The settings worker cap applies unless the invocation overrides it.
	if _, ok := args.Get("procs"); !ok && resolved.MaxProcs > 0 {
		args["procs"] = strconv.Itoa(resolved.MaxProcs)
	}

	runErr := toolshell.ValidateArgs(fsutil.OSFileSystem{}, tool, args, resolved.WorkingDirectory)
	if runErr == nil {
		runErr = tool.Run(args, resolved.WorkingDirectory, resolved.VerboseMode)
	}
	outputPath, _ := args.Get("o", "output")
	if err := ledger.Finish(inv, outputPath, runErr); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if reportPath, ok := args.Get("report"); ok {
		if err := writeRunSummary(ledger, resolved.WorkingDirectory, reportPath); err != nil {
			return err
		}
	}

	if addr, ok := args.Get("debug-sql"); ok {
		return serveDebugSQL(ledger, addr)
	}
	return nil
}

func writeRunSummary(ledger *runlog.DB, workingDir, path string) error {
	path = toolshell.EnsureExtension(toolshell.ResolvePath(workingDir, path), "html")
	invs, err := ledger.Recent(50)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.Summary(f, invs)
}

// serveDebugSQL exposes the run ledger's tailsql console on a loopback
// port until interrupted. Developer-only; never bound to a routable
// address.
func serveDebugSQL(ledger *runlog.DB, addr string) error {
	if addr == "true" || addr == "" {
		addr = "localhost:8384"
	}
	if !strings.HasPrefix(addr, "localhost:") && !strings.HasPrefix(addr, "127.0.0.1:") {
		return fmt.Errorf("--debug-sql only binds loopback addresses, got %s", addr)
	}
	mux := http.NewServeMux()
	if err := ledger.AttachDebug(mux); err != nil {
		return err
	}
	fmt.Printf("run-ledger SQL console at http://%s/debug/\n", addr)
	return http.ListenAndServe(addr, mux)
}

func printToolHelp(reg *toolshell.Registry, name string) error {
	tool, err := reg.Lookup(name)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n%s\n\nParameters:\n", tool.Name(), tool.Toolbox(), tool.Description())
	for _, p := range tool.Parameters() {
		flags := make([]string, len(p.Flags))
		for i, f := range p.Flags {
			flags[i] = "--" + f
		}
		req := ""
		if !p.Optional {
			req = " (required)"
		}
		def := ""
		if p.Default != "" {
			def = " [default: " + p.Default + "]"
		}
		fmt.Printf("  %-28s %s%s%s\n", strings.Join(flags, ", "), p.Description, req, def)
	}
	if tool.ExampleUsage() != "" {
		fmt.Printf("\nExample:\n  %s\n", tool.ExampleUsage())
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: geocore -r=<ToolName> [-v] [--wd=<working_dir>] [--<flag>=<value> ...]
       geocore --listtools
       geocore --toolhelp=<ToolName>
       geocore -version`)
}
