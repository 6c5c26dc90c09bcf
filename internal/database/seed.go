// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/models"
)

const (
	sheenChairURL   = "https://raw.githubusercontent.com/KhronosGroup/glTF-Sample-Models/master/2.0/SheenChair/glTF-Binary/SheenChair.glb"
	avocadoURL      = "https://raw.githubusercontent.com/KhronosGroup/glTF-Sample-Models/master/2.0/Avocado/glTF-Binary/Avocado.glb"
	flightHelmetURL = "https://raw.githubusercontent.com/KhronosGroup/glTF-Sample-Models/master/2.0/FlightHelmet/glTF/FlightHelmet.gltf"
)

// demoStores returns the stores inserted by SeedDemoData.
func demoStores() []models.CreateStoreRequest {
	return []models.CreateStoreRequest{
		{
			ID:              "store_001",
			Name:            "Fashion Store",
			Domain:          "localhost",
			BackgroundImage: "https://images.unsplash.com/photo-1719716133697-e924192e9a7f?w=2362&auto=format&fit=crop",
			Models: []models.Model3D{
				{ID: "shirt_1", URL: sheenChairURL, Position: models.Position{X: 0.3, Y: 0.65}, Scale: models.Scale{Width: 300, Height: 300}},
				{ID: "pant_2", URL: avocadoURL, Position: models.Position{X: 0.5, Y: 0.65}, Scale: models.Scale{Width: 4000, Height: 4000}},
				{ID: "shoe_1", URL: flightHelmetURL, Position: models.Position{X: 0.7, Y: 0.65}, Scale: models.Scale{Width: 400, Height: 400}},
			},
			WidgetConfig: models.WidgetConfig{
				VideoURL:      "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
				ClickableLink: "http://localhost:3000/store/store_001",
			},
		},
		{
			ID:              "store_002",
			Name:            "Clothing Boutique",
			BackgroundImage: "https://images.unsplash.com/photo-1551909386-707ddce67573?w=2338&auto=format&fit=crop",
			Models: []models.Model3D{
				{ID: "shoe_2", URL: flightHelmetURL, Position: models.Position{X: 0.2, Y: 0.45}, Scale: models.Scale{Width: 400, Height: 400}},
				{ID: "pant_2", URL: avocadoURL, Position: models.Position{X: 0.4, Y: 0.45}, Scale: models.Scale{Width: 4000, Height: 4000}},
			},
		},
	}
}

// SeedDemoData inserts the demo stores. Stores that already exist are left
// untouched. It returns the number of stores inserted.
func (db *DB) SeedDemoData(ctx context.Context) (int, error) {
	inserted := 0
	for _, req := range demoStores() {
		req := req
		if _, err := db.CreateStore(ctx, &req); err != nil {
			if errors.Is(err, ErrStoreExists) || errors.Is(err, ErrDomainTaken) {
				logging.Debug().Str("store_id", req.ID).Msg("Demo store already present, skipping")
				continue
			}
			return inserted, fmt.Errorf("seed demo data: %w", err)
		}
		inserted++
		logging.Info().Str("store_id", req.ID).Str("name", req.Name).Msg("Inserted demo store")
	}
	return inserted, nil
}
