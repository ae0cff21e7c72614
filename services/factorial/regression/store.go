// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package regression keeps a history of factorial run estimates and
// compares new runs against a per-bench baseline.
package regression

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/factorbench/services/factorial/summary"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates no snapshot or baseline exists for the bench.
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidSnapshot indicates a nil or incomplete snapshot, or stored
	// data that cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// Snapshot is the estimates of one run of one bench.
type Snapshot struct {
	// ID identifies the run.
	ID string `json:"id"`

	// Bench is the bench name.
	Bench string `json:"bench"`

	// CreatedAt is when the run finished.
	CreatedAt time.Time `json:"created_at"`

	// Estimates maps long treatment keys to nanoseconds. Treatments
	// without an estimate are absent.
	Estimates map[string]float64 `json:"estimates"`

	// Metadata holds arbitrary labels such as a commit hash.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewSnapshot creates a snapshot with a random ID.
func NewSnapshot(bench string, estimates map[string]float64) *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		Bench:     bench,
		CreatedAt: time.Now().UTC(),
		Estimates: maps.Clone(estimates),
	}
}

// FromReport creates a snapshot of a report's valid estimates. An empty
// runID is replaced with a random one.
func FromReport(runID string, r *summary.Report) *Snapshot {
	s := NewSnapshot(r.Bench(), r.Estimates())
	if runID != "" {
		s.ID = runID
	}
	return s
}

// Validate checks that the snapshot can be stored.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSnapshot)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSnapshot)
	}
	if s.Bench == "" {
		return fmt.Errorf("%w: empty bench", ErrInvalidSnapshot)
	}
	return nil
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Estimates = maps.Clone(s.Estimates)
	c.Metadata = maps.Clone(s.Metadata)
	return &c
}

// -----------------------------------------------------------------------------
// Store Interface
// -----------------------------------------------------------------------------

// Store persists run snapshots and one baseline per bench.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Store interface {
	// Put appends a snapshot to the bench history.
	Put(ctx context.Context, s *Snapshot) error

	// Latest returns the most recent snapshot of a bench.
	// Returns ErrNotFound if the bench has no history.
	Latest(ctx context.Context, bench string) (*Snapshot, error)

	// List returns the history of a bench, oldest first.
	List(ctx context.Context, bench string) ([]*Snapshot, error)

	// Baseline returns the baseline of a bench.
	// Returns ErrNotFound if none was set.
	Baseline(ctx context.Context, bench string) (*Snapshot, error)

	// SetBaseline replaces the baseline of the snapshot's bench.
	SetBaseline(ctx context.Context, s *Snapshot) error
}

// -----------------------------------------------------------------------------
// Memory Store
// -----------------------------------------------------------------------------

// MemoryStore keeps snapshots in memory. Data is lost when the process
// exits.
//
// Thread Safety: Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	history   map[string][]*Snapshot
	baselines map[string]*Snapshot
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history:   make(map[string][]*Snapshot),
		baselines: make(map[string]*Snapshot),
	}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h := append(m.history[s.Bench], s.clone())
	sort.SliceStable(h, func(i, j int) bool { return h[i].CreatedAt.Before(h[j].CreatedAt) })
	m.history[s.Bench] = h
	return nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(_ context.Context, bench string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.history[bench]
	if len(h) == 0 {
		return nil, fmt.Errorf("latest %s: %w", bench, ErrNotFound)
	}
	return h[len(h)-1].clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, bench string) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Snapshot, 0, len(m.history[bench]))
	for _, s := range m.history[bench] {
		out = append(out, s.clone())
	}
	return out, nil
}

// Baseline implements Store.
func (m *MemoryStore) Baseline(_ context.Context, bench string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.baselines[bench]
	if !ok {
		return nil, fmt.Errorf("baseline %s: %w", bench, ErrNotFound)
	}
	return s.clone(), nil
}

// SetBaseline implements Store.
func (m *MemoryStore) SetBaseline(_ context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[s.Bench] = s.clone()
	return nil
}

var _ Store = (*MemoryStore)(nil)
