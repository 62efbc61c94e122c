package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"welle/internal/compile"
)

// runRepl implements the minimal REPL SPEC_FULL.md's SUPPLEMENTED
// FEATURES #4 calls for, grounded on internal/repl/repl.go's
// read-a-line/compile/run loop. Each line is compiled and run as its own
// program against a fresh sandbox; spec.md's scheduler API (run/eval/
// stop) is demonstrated per line rather than threading one persistent
// environment across lines, since C7's frozen global environment is
// meant to be rebuilt per compiled program (spec.md §4.7/§4.8).
func runRepl(args []string) {
	_, whitelist, silent := parseCommonFlags(args)
	modules := loadModules(whitelist)

	scanner := bufio.NewScanner(os.Stdin)
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Print(cyan("ejs> "))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			fmt.Print(cyan("ejs> "))
			continue
		}
		result := compile.Compile(line, compile.Options{
			Silent:      silent,
			TestTimeout: 5 * time.Second,
			Modules:     modules,
		})
		if result.Err != nil {
			printDiagnostics(result.Err)
			fmt.Print(cyan("ejs> "))
			continue
		}
		ctx := context.Background()
		result.Scheduler.Run(ctx)
		result.Scheduler.Wait()
		if err := result.Scheduler.LastError(); err != nil {
			fmt.Println(err)
		}
		fmt.Print(cyan("ejs> "))
	}
}
