// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/AleutianAI/factorbench/services/factorial/estimate"
)

// Testing adapts a *testing.B to the Harness interface.
//
// Every treatment becomes a sub-benchmark named after its id. The testing
// package chooses b.N; after the final round the mean time per iteration
// is written as the statistics file with a null slope. A sub-benchmark
// excluded by the -bench filter never runs its body, so no statistics file
// is written for it and it loads as absent.
//
// Example:
//
//	func BenchmarkTwoSum(b *testing.B) {
//	    h := harness.NewTesting(b, "target/factorbench")
//	    runner := experiment.NewRunner(h, "target/factorbench")
//	    if _, err := experiment.Bench(ctx, runner, twosum.Experiment{}, "two_sum", inputs, algs); err != nil {
//	        b.Fatal(err)
//	    }
//	}
type Testing struct {
	b    benchRunner
	root string
}

// benchRunner is the part of *testing.B the adapter drives.
type benchRunner interface {
	Run(name string, f func(b *testing.B)) bool
	Logf(format string, args ...any)
}

// NewTesting wraps b, writing statistics under root.
func NewTesting(b *testing.B, root string) *Testing {
	return &Testing{b: b, root: root}
}

// Group implements Harness.
func (h *Testing) Group(ctx context.Context, name string) (Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group: %w", ErrEmptyName)
	}
	return &testingGroup{harness: h, name: name}, nil
}

type testingGroup struct {
	harness  *Testing
	name     string
	finished bool
}

func (g *testingGroup) Bench(ctx context.Context, id string, op Op) error {
	if g.finished {
		return fmt.Errorf("bench %s: %w", id, ErrGroupFinished)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		opErr  error
		meanNs float64
		ran    bool
	)
	g.harness.b.Run(id, func(b *testing.B) {
		ran = true
		for i := 0; i < b.N; i++ {
			out, err := op()
			if err != nil {
				opErr = err
				b.Fatalf("%s: %v", id, err)
			}
			runtime.KeepAlive(out)
		}
		meanNs = float64(b.Elapsed().Nanoseconds()) / float64(b.N)
	})
	if opErr != nil {
		return fmt.Errorf("bench %s: %w", id, opErr)
	}
	if !ran {
		g.harness.b.Logf("%s/%s: not run, no statistics written", g.name, id)
		return nil
	}

	f := &estimate.File{Mean: estimate.Point(meanNs, 0)}
	if err := estimate.Write(estimate.Path(g.harness.root, g.name, id), f); err != nil {
		return fmt.Errorf("bench %s: %w", id, err)
	}
	return nil
}

func (g *testingGroup) Finish(ctx context.Context) error {
	g.finished = true
	return nil
}

var (
	_ Harness     = (*Testing)(nil)
	_ benchRunner = (*testing.B)(nil)
)
