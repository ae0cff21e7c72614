// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command factorbench runs factorial benchmark experiments and summarizes
// their results.
//
// Usage:
//
//	factorbench list
//	factorbench run [experiment...]
//	factorbench summarize <experiment>
//	factorbench watch <experiment>
//	factorbench compare <experiment>
//	factorbench publish <experiment>
//	factorbench serve
//	factorbench init [path]
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/factorbench/services/factorial/config"
	"github.com/AleutianAI/factorbench/services/factorial/examples"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(stdout, stderr, examples.Default())
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		a.printer.Error(err.Error())
		return 1
	}
	return 0
}

// newRootCmd assembles the command tree over a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "factorbench",
		Short:         "Run and summarize factorial benchmark experiments",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", config.DefaultFile, "configuration file")
	pf.StringVar(&a.flags.artifactRoot, "artifact-root", "", "override the artifact root")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "override the log level (debug, info, warn, error)")
	pf.BoolVar(&a.flags.json, "json", false, "log as JSON")
	pf.BoolVar(&a.flags.plain, "plain", false, "disable colors and box drawing")
	pf.BoolVar(&a.flags.trace, "trace", false, "print spans to stderr")

	root.AddCommand(
		newListCmd(a),
		newRunCmd(a),
		newSummarizeCmd(a),
		newWatchCmd(a),
		newCompareCmd(a),
		newPublishCmd(a),
		newServeCmd(a),
		newInitCmd(a),
	)
	return root
}
