// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package regression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	run/<bench>/<created unix nanos, zero padded>/<id>  -> Snapshot JSON
//	baseline/<bench>                                    -> Snapshot JSON
//
// Zero padding keeps badger's byte order equal to time order.
const (
	runPrefix      = "run/"
	baselinePrefix = "baseline/"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in memory. Useful for tests.
	InMemory bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// Logger receives badger's internal logs. If nil, they are discarded.
	Logger *slog.Logger
}

// BadgerStore persists snapshots in an embedded BadgerDB.
//
// Thread Safety: Safe for concurrent use.
type BadgerStore struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens or creates a BadgerStore.
//
// Outputs:
//
//	*BadgerStore - The store. Caller must call Close.
//	error        - Non-nil if Path is missing or the database cannot be opened.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent history")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func runKey(s *Snapshot) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", runPrefix, s.Bench, s.CreatedAt.UnixNano(), s.ID))
}

func runBenchPrefix(bench string) []byte {
	return []byte(runPrefix + bench + "/")
}

func baselineKey(bench string) []byte {
	return []byte(baselinePrefix + bench)
}

func decode(item *badger.Item) (*Snapshot, error) {
	var s Snapshot
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &s)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, item.Key(), err)
	}
	return &s, nil
}

func (b *BadgerStore) set(ctx context.Context, key []byte, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Put implements Store.
func (b *BadgerStore) Put(ctx context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return b.set(ctx, runKey(s), s)
}

// Latest implements Store.
func (b *BadgerStore) Latest(ctx context.Context, bench string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := runBenchPrefix(bench)
	var latest *Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the largest key <= seek, so seek past
		// every key with the prefix.
		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		s, err := decode(it.Item())
		if err != nil {
			return err
		}
		latest = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("latest %s: %w", bench, ErrNotFound)
	}
	return latest, nil
}

// List implements Store.
func (b *BadgerStore) List(ctx context.Context, bench string) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := runBenchPrefix(bench)
	var out []*Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := decode(it.Item())
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Baseline implements Store.
func (b *BadgerStore) Baseline(ctx context.Context, bench string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var s *Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(baselineKey(bench))
		if err != nil {
			return err
		}
		s, err = decode(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("baseline %s: %w", bench, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SetBaseline implements Store.
func (b *BadgerStore) SetBaseline(ctx context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return b.set(ctx, baselineKey(s.Bench), s)
}

var _ Store = (*BadgerStore)(nil)
