// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/showroom/internal/logging"
)

var (
	// ErrStoreNotFound is returned when no document exists for a store id.
	ErrStoreNotFound = errors.New("store not found")

	// ErrModelNotFound is returned when a store has no model with the given id.
	ErrModelNotFound = errors.New("model not found")

	// ErrStoreExists is returned when creating a store whose id is taken.
	ErrStoreExists = errors.New("store already exists")

	// ErrDomainTaken is returned when creating a store whose domain is
	// already served by another store.
	ErrDomainTaken = errors.New("domain already assigned to another store")
)

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}
