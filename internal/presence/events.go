// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package presence

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/showroom/internal/models"
)

// Inbound real-time event names.
const (
	EventJoinStore  = "join_store"
	EventLeaveStore = "leave_store"
	EventModelMoved = "model_moved"
)

// Outbound real-time event names.
const (
	EventUserJoined           = "user_joined"
	EventUserLeft             = "user_left"
	EventActiveUserCount      = "active_user_count"
	EventStoreFull            = "store_full"
	EventModelPositionUpdated = "model_position_updated"
)

// StoreRequest is the payload of join_store and leave_store.
type StoreRequest struct {
	StoreID string `json:"storeId" validate:"required,roomid"`
}

// ModelMove is the payload of model_moved, relayed as
// model_position_updated. When Raw is set it is relayed byte for byte, so
// fields the server does not know about reach the other members too.
type ModelMove struct {
	StoreID  string           `json:"storeId" validate:"required,roomid"`
	ModelID  string           `json:"modelId" validate:"required,max=128"`
	Position *models.Position `json:"position" validate:"required"`

	Raw json.RawMessage `json:"-"`
}

// MemberPayload is the payload of user_joined and user_left.
type MemberPayload struct {
	SID string `json:"sid"`
}

// CountPayload is the payload of active_user_count.
type CountPayload struct {
	Count int `json:"count"`
}

// StoreFullPayload is the payload of store_full.
type StoreFullPayload struct {
	StoreID string `json:"storeId"`
}
