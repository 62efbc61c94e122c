// Command elementaryjs is the host CLI: run a source file, drive a
// minimal REPL-style eval loop, and load a whitelist-module manifest.
// Grounded on cmd/welle/main.go's flag-dispatch shape, narrowed to the
// run/repl surface spec.md §1 leaves in scope (explicitly excluding any
// broader IDE/host-integration plumbing).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"welle/internal/compile"
	"welle/internal/manifest"
	"welle/internal/sandbox"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: elementaryjs [run|repl] <file> [--whitelist manifest.yaml] [--silent]")
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "run":
		runFile(args)
	case "repl":
		runRepl(args)
	default:
		runFile(os.Args[1:])
	}
}

func parseCommonFlags(args []string) (file string, whitelist string, silent bool) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--whitelist":
			if i+1 < len(args) {
				whitelist = args[i+1]
				i++
			}
		case "--silent":
			silent = true
		default:
			if file == "" {
				file = args[i]
			}
		}
	}
	return
}

func loadModules(path string) map[string]sandbox.Module {
	if path == "" {
		return nil
	}
	man, err := manifest.Load(path)
	if err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("whitelist manifest error"), err)
		os.Exit(1)
	}
	return man.ToModules()
}

func runFile(args []string) {
	file, whitelist, silent := parseCommonFlags(args)
	if file == "" {
		fmt.Println("usage: elementaryjs run <file> [--whitelist manifest.yaml] [--silent]")
		os.Exit(1)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	result := compile.Compile(string(src), compile.Options{
		Silent:      silent,
		TestTimeout: 5 * time.Second,
		Modules:     loadModules(whitelist),
	})
	if result.Err != nil {
		printDiagnostics(result.Err)
		os.Exit(1)
	}

	ctx := context.Background()
	result.Scheduler.Run(ctx)
	result.Scheduler.Wait()
	if err := result.Scheduler.LastError(); err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("uncaught exception"), err)
		os.Exit(1)
	}

	// A student program that already called summary() itself has disabled
	// the harness (spec.md §4.6); only auto-print here if it never did.
	if result.Harness.Enabled() && len(result.Harness.Records()) > 0 {
		fmt.Print(result.Harness.Summary(!color.NoColor))
	}
}

func printDiagnostics(err interface{ Error() string }) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s\n", red("compile error"))
	fmt.Fprintln(os.Stderr, err.Error())
}
