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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/factorbench/services/factorial/publish"
	"github.com/AleutianAI/factorbench/services/factorial/summary"
)

// ErrNoPublishTarget is returned when neither a bucket nor a directory is
// configured.
var ErrNoPublishTarget = errors.New("no publish target: set publish.bucket or publish.dir")

func newPublishCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "publish <experiment>",
		Short: "Upload the summary artifacts of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			e, err := a.registry.Get(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				a.cfg.Publish.Dir = dir
				a.cfg.Publish.Bucket = ""
			}

			files, err := artifactFiles(a.cfg.ArtifactRoot, e.Name())
			if err != nil {
				return err
			}

			p, closePublisher, err := a.publisher(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closePublisher(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			if err := p.Publish(cmd.Context(), e.Name(), files); err != nil {
				return err
			}
			a.printer.Success(fmt.Sprintf("published %d file(s) for %s", len(files), e.Name()))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "copy into this directory instead of the configured target")
	return cmd
}

// publisher builds the configured publisher. A bucket takes precedence
// over a directory.
func (a *app) publisher(ctx context.Context) (publish.Publisher, func() error, error) {
	pc := a.cfg.Publish
	switch {
	case pc.Bucket != "":
		g, err := publish.NewGCSPublisher(ctx, pc.Bucket, pc.Prefix, pc.Credentials)
		if err != nil {
			return nil, nil, err
		}
		g.SetLogger(a.logger.Slog())
		return g, g.Close, nil
	case pc.Dir != "":
		return publish.DirPublisher{Dir: pc.Dir}, func() error { return nil }, nil
	default:
		return nil, nil, ErrNoPublishTarget
	}
}

// artifactFiles returns the summary artifacts of a bench. They must have
// been written by run or summarize.
func artifactFiles(root, bench string) ([]string, error) {
	files := []string{
		summary.CSVPath(root, bench),
		summary.PromptPath(root, bench),
		summary.BenchfmtPath(root, bench),
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, fmt.Errorf("%s: artifacts missing, run summarize first: %w", bench, err)
		}
	}
	return files, nil
}
