// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/factorbench/services/factorial/summary"
)

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <experiment>",
		Short: "Rebuild the summary artifacts of an experiment from its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.summarize(cmd.Context(), args[0])
			return err
		},
	}
}

// summarize loads the statistics of the named experiment, writes its
// artifacts and prints the ranked table.
func (a *app) summarize(ctx context.Context, name string) (*summary.Report, error) {
	e, err := a.registry.Get(name)
	if err != nil {
		return nil, err
	}
	report, err := summary.Build(ctx, a.cfg.ArtifactRoot, e.Grid())
	if err != nil {
		return nil, err
	}
	artifacts, err := report.WriteArtifacts()
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(a.printer.Writer(), report.Render(a.printer.Mode()))
	a.printer.KeyValue("summary", artifacts.CSV)
	a.logger.Debug("summary rebuilt", "bench", name, "csv", artifacts.CSV)
	return report, nil
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <experiment>",
		Short: "Rebuild the summary whenever the experiment's statistics change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, err := a.registry.Get(name); err != nil {
				return err
			}
			if _, err := a.summarize(cmd.Context(), name); err != nil {
				return err
			}

			dir := summary.BenchDir(a.cfg.ArtifactRoot, name)
			w, err := newStatsWatcher(dir, debounce, a.logger.Slog())
			if err != nil {
				return err
			}
			defer w.Close()

			a.printer.Info(fmt.Sprintf("watching %s (ctrl-c to stop)", dir))
			limiter := rate.NewLimiter(rate.Every(interval), 1)
			err = w.Run(cmd.Context(), func(ctx context.Context) error {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				_, err := a.summarize(ctx, name)
				return err
			})
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before rebuilding")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "minimum time between rebuilds")
	return cmd
}
