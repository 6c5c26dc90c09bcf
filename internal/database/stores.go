// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/showroom/internal/models"
)

// GetStore returns the store document with the given id.
func (db *DB) GetStore(ctx context.Context, id string) (*models.Store, error) {
	var store *models.Store
	err := db.view(ctx, "get_store", func(txn *badger.Txn) error {
		var err error
		store, err = getStoreTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ListStores returns every store ordered by id.
func (db *DB) ListStores(ctx context.Context) ([]models.Store, error) {
	stores := make([]models.Store, 0)
	err := db.view(ctx, "list_stores", func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(storePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var store models.Store
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &store)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			stores = append(stores, store)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// CreateStore inserts a new store. A missing id is generated. The active user
// count always starts at zero.
func (db *DB) CreateStore(ctx context.Context, req *models.CreateStoreRequest) (*models.Store, error) {
	store := &models.Store{
		ID:              req.ID,
		Name:            req.Name,
		Domain:          normalizeDomain(req.Domain),
		BackgroundImage: req.BackgroundImage,
		Models:          req.Models,
		WidgetConfig:    req.WidgetConfig,
		ActiveUsers:     0,
	}
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	if store.Models == nil {
		store.Models = []models.Model3D{}
	}

	err := db.update(ctx, "create_store", func(txn *badger.Txn) error {
		if _, err := txn.Get(storeKey(store.ID)); err == nil {
			return ErrStoreExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if store.Domain != "" {
			if _, err := txn.Get(domainKey(store.Domain)); err == nil {
				return ErrDomainTaken
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(domainKey(store.Domain), []byte(store.ID)); err != nil {
				return err
			}
		}
		return putStoreTxn(txn, store)
	})
	if err != nil {
		return nil, fmt.Errorf("create store %s: %w", store.ID, err)
	}
	return store, nil
}

// UpdateModelPosition moves one model of a store and returns the stored
// position. Other fields, including the active user count, are preserved.
func (db *DB) UpdateModelPosition(ctx context.Context, storeID, modelID string, pos models.Position) (models.Position, error) {
	err := db.update(ctx, "update_model_position", func(txn *badger.Txn) error {
		store, err := getStoreTxn(txn, storeID)
		if err != nil {
			return err
		}
		idx := store.FindModel(modelID)
		if idx < 0 {
			return ErrModelNotFound
		}
		store.Models[idx].Position = pos
		return putStoreTxn(txn, store)
	})
	if err != nil {
		return models.Position{}, fmt.Errorf("update model %s of store %s: %w", modelID, storeID, err)
	}
	return pos, nil
}

// SetActiveUsers stores the live occupancy of a store.
func (db *DB) SetActiveUsers(ctx context.Context, storeID string, count int) error {
	err := db.update(ctx, "set_active_users", func(txn *badger.Txn) error {
		store, err := getStoreTxn(txn, storeID)
		if err != nil {
			return err
		}
		if store.ActiveUsers == count {
			return nil
		}
		store.ActiveUsers = count
		return putStoreTxn(txn, store)
	})
	if err != nil {
		return fmt.Errorf("set active users of store %s: %w", storeID, err)
	}
	return nil
}

// FindByDomain returns the store serving domain.
func (db *DB) FindByDomain(ctx context.Context, domain string) (*models.Store, error) {
	var store *models.Store
	err := db.view(ctx, "find_by_domain", func(txn *badger.Txn) error {
		item, err := txn.Get(domainKey(normalizeDomain(domain)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrStoreNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		store, err = getStoreTxn(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func getStoreTxn(txn *badger.Txn, id string) (*models.Store, error) {
	item, err := txn.Get(storeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}

	var store models.Store
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &store)
	}); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", id, err)
	}
	return &store, nil
}

func putStoreTxn(txn *badger.Txn, store *models.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("encode store %s: %w", store.ID, err)
	}
	return txn.Set(storeKey(store.ID), data)
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ResetActiveUsers zeroes the active user count of every store and returns
// how many documents changed. No session outlives the process, so counts
// persisted by a previous run are stale at startup.
func (db *DB) ResetActiveUsers(ctx context.Context) (int, error) {
	stores, err := db.ListStores(ctx)
	if err != nil {
		return 0, err
	}

	reset := 0
	for _, s := range stores {
		if s.ActiveUsers == 0 {
			continue
		}
		if err := db.SetActiveUsers(ctx, s.ID, 0); err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}
