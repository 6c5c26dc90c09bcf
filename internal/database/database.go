// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/showroom/internal/config"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/metrics"
)

const (
	storePrefix  = "store:"
	domainPrefix = "domain:"

	// maxTxnAttempts bounds retries of a read-modify-write transaction that
	// keeps conflicting with concurrent writers.
	maxTxnAttempts = 5
)

// DB is the store document repository.
type DB struct {
	db *badger.DB
}

// New opens the Badger store described by cfg.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(logging.NewBadgerLogger())

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Store database opened")
	return &DB{db: bdb}, nil
}

// NewWithBadger wraps an already opened Badger instance.
func NewWithBadger(bdb *badger.DB) *DB {
	return &DB{db: bdb}
}

// Close closes the underlying Badger instance.
func (db *DB) Close() error {
	if db.db == nil || db.db.IsClosed() {
		return nil
	}
	return db.db.Close()
}

// Ping reports whether the store is open and readable.
func (db *DB) Ping(ctx context.Context) error {
	if db.db == nil || db.db.IsClosed() {
		return errors.New("store database is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.db.View(func(*badger.Txn) error { return nil })
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (db *DB) update(ctx context.Context, operation string, fn func(txn *badger.Txn) error) error {
	start := time.Now()
	var err error
	for attempt := 1; attempt <= maxTxnAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		err = db.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		logging.Debug().Str("operation", operation).Int("attempt", attempt).Msg("Retrying conflicting store transaction")
	}
	metrics.RecordDBQuery("badger", operation, time.Since(start), ignoreNotFound(err))
	return err
}

// view runs fn in a read-only transaction.
func (db *DB) view(ctx context.Context, operation string, fn func(txn *badger.Txn) error) error {
	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = db.db.View(fn)
	}
	metrics.RecordDBQuery("badger", operation, time.Since(start), ignoreNotFound(err))
	return err
}

// ignoreNotFound keeps lookups of missing documents out of the error metrics.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrStoreNotFound) || errors.Is(err, ErrModelNotFound) {
		return nil
	}
	return err
}

func storeKey(id string) []byte {
	return []byte(storePrefix + id)
}

func domainKey(domain string) []byte {
	return []byte(domainPrefix + domain)
}
