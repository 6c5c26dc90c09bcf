// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

// Package models defines the documents and payloads shared across Showroom.
package models

// Position is a 2D placement inside the store background image.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale is the rendered size of a placed model.
type Scale struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// Model3D is a 3D asset placed in a store.
type Model3D struct {
	ID       string   `json:"id" validate:"required,max=128"`
	URL      string   `json:"url" validate:"required,url"`
	Position Position `json:"position"`
	Scale    Scale    `json:"scale"`
}

// WidgetConfig is the video overlay shown by the embedded widget.
type WidgetConfig struct {
	VideoURL      string `json:"videoUrl" validate:"omitempty,url"`
	ClickableLink string `json:"clickableLink" validate:"omitempty,url"`
}

// Store is the document persisted for each 3D store.
//
// ActiveUsers mirrors the live room occupancy and is written exclusively by
// the presence occupancy sync.
type Store struct {
	ID              string       `json:"_id"`
	Name            string       `json:"name"`
	Domain          string       `json:"domain,omitempty"`
	BackgroundImage string       `json:"backgroundImage,omitempty"`
	Models          []Model3D    `json:"models"`
	WidgetConfig    WidgetConfig `json:"widgetConfig"`
	ActiveUsers     int          `json:"activeUsers"`
}

// FindModel returns the index of the model with the given id, or -1.
func (s *Store) FindModel(modelID string) int {
	for i := range s.Models {
		if s.Models[i].ID == modelID {
			return i
		}
	}
	return -1
}

// CreateStoreRequest is the body of POST /api/stores.
type CreateStoreRequest struct {
	ID              string       `json:"_id,omitempty" validate:"omitempty,roomid"`
	Name            string       `json:"name" validate:"required,max=200"`
	Domain          string       `json:"domain,omitempty" validate:"omitempty,hostname_rfc1123"`
	BackgroundImage string       `json:"backgroundImage,omitempty" validate:"omitempty,url"`
	Models          []Model3D    `json:"models" validate:"dive"`
	WidgetConfig    WidgetConfig `json:"widgetConfig"`
}

// UpdatePositionRequest is the body of PATCH /api/stores/{storeId}/models/{modelId}.
type UpdatePositionRequest struct {
	Position *Position `json:"position" validate:"required"`
}

// UpdatePositionResponse echoes the stored position.
type UpdatePositionResponse struct {
	Success  bool     `json:"success"`
	Position Position `json:"position"`
}

// PresenceResponse is the live occupancy of a store room.
type PresenceResponse struct {
	StoreID     string `json:"storeId"`
	ActiveUsers int    `json:"activeUsers"`
	Capacity    int    `json:"capacity"`
	Full        bool   `json:"full"`
}
