// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package examples registers the bundled experiments under their bench
// names so the CLI can list, run and re-summarize them.
package examples

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AleutianAI/factorbench/services/factorial/examples/rotate"
	"github.com/AleutianAI/factorbench/services/factorial/examples/search"
	"github.com/AleutianAI/factorbench/services/factorial/examples/twosum"
	"github.com/AleutianAI/factorbench/services/factorial/experiment"
	"github.com/AleutianAI/factorbench/services/factorial/factors"
	"github.com/AleutianAI/factorbench/services/factorial/treatment"
)

var (
	// ErrNilEntry is returned when registering a nil entry.
	ErrNilEntry = errors.New("entry must not be nil")

	// ErrAlreadyRegistered is returned when a name is taken.
	ErrAlreadyRegistered = errors.New("experiment already registered")

	// ErrNotFound is returned when no entry has the requested name.
	ErrNotFound = errors.New("experiment not found")
)

// Entry is a runnable experiment with fixed levels.
type Entry interface {
	// Name returns the bench name.
	Name() string

	// Description is a one-line summary for listings.
	Description() string

	// Grid returns the treatment grid without running anything. It is
	// used to re-summarize statistics already on disk.
	Grid() *treatment.Grid

	// Run benchmarks every treatment with runner.
	Run(ctx context.Context, runner *experiment.Runner) (*experiment.Run, error)
}

// Define binds an experiment to its levels.
//
// Example:
//
//	e := examples.Define[rotate.Width, rotate.Variant, []int, []int](
//	    "rotate", "rotation by swaps", rotate.Experiment{},
//	    rotate.DefaultWidths(), rotate.DefaultVariants())
func Define[I, A factors.Levels, In, Out any](
	name, description string,
	exp experiment.Experiment[I, A, In, Out],
	inputs []I,
	algs []A,
) Entry {
	return &entry[I, A, In, Out]{
		name:        name,
		description: description,
		exp:         exp,
		inputs:      inputs,
		algs:        algs,
	}
}

type entry[I, A factors.Levels, In, Out any] struct {
	name        string
	description string
	exp         experiment.Experiment[I, A, In, Out]
	inputs      []I
	algs        []A
}

func (e *entry[I, A, In, Out]) Name() string        { return e.name }
func (e *entry[I, A, In, Out]) Description() string { return e.description }

func (e *entry[I, A, In, Out]) Grid() *treatment.Grid {
	return treatment.NewGrid(e.name, e.inputs, e.algs)
}

func (e *entry[I, A, In, Out]) Run(ctx context.Context, runner *experiment.Runner) (*experiment.Run, error) {
	return experiment.Bench(ctx, runner, e.exp, e.name, e.inputs, e.algs)
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry maps bench names to entries.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry under its Name.
//
// Outputs:
//
//	error - ErrNilEntry, or ErrAlreadyRegistered if the name is taken.
func (r *Registry) Register(e Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.entries[name] = e
	return nil
}

// MustRegister registers e and panics on error. Use during startup only.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(fmt.Sprintf("examples: failed to register: %v", err))
	}
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the entries for names in order, or every entry sorted
// by name when names is empty.
func (r *Registry) Resolve(names ...string) ([]Entry, error) {
	if len(names) == 0 {
		names = r.List()
	}
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Default returns a registry holding the bundled experiments.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(Define[twosum.Data, twosum.Method, twosum.Input, twosum.Pair](twosum.Name,
		"two-sum over a linear scan, sorted slice, hash map and sorted map",
		twosum.Experiment{}, twosum.DefaultData(), twosum.DefaultMethods()))
	r.MustRegister(Define[search.Data, search.Params, []string, search.Result](search.Name,
		"parallel find by goroutine count and scan direction",
		search.Experiment{}, search.DefaultData(), search.DefaultParams()))
	r.MustRegister(Define[rotate.Width, rotate.Variant, []int, []int](rotate.Name,
		"rotation by adjacent swaps",
		rotate.Experiment{}, rotate.DefaultWidths(), rotate.DefaultVariants()))
	return r
}
