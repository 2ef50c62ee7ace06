// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package esi

import (
	"context"

	"github.com/tomtom215/kverna/internal/models"
)

// Enricher is the lookup surface the rest of Kverna depends on.
// Client, CircuitBreakerClient and CachingClient all implement it.
type Enricher interface {
	SystemInfo(ctx context.Context, systemID int64) (*SystemInfo, error)
	Constellation(ctx context.Context, constellationID int64) (*Constellation, error)
	Region(ctx context.Context, regionID int64) (*Region, error)
	ResolveNames(ctx context.Context, ids []int64) ([]Name, error)
	ResolveIDs(ctx context.Context, names []string) (IDs, error)
	Search(ctx context.Context, category, text string) ([]int64, error)
}

// SystemInfo is the subset of /universe/systems/{id}/ Kverna uses.
type SystemInfo struct {
	SystemID        int64           `json:"system_id"`
	Name            string          `json:"name"`
	ConstellationID int64           `json:"constellation_id"`
	SecurityStatus  float64         `json:"security_status"`
	Position        models.Position `json:"position"`
}

// Constellation is the subset of /universe/constellations/{id}/ Kverna uses.
type Constellation struct {
	ConstellationID int64   `json:"constellation_id"`
	Name            string  `json:"name"`
	RegionID        int64   `json:"region_id"`
	Systems         []int64 `json:"systems"`
}

// Region is the subset of /universe/regions/{id}/ Kverna uses.
type Region struct {
	RegionID       int64   `json:"region_id"`
	Name           string  `json:"name"`
	Constellations []int64 `json:"constellations"`
}

// Name is one entry of a /universe/names/ response.
type Name struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// IDRef is one entry of a /universe/ids/ category group.
type IDRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IDs groups resolved names by category (alliances, characters, systems, ...).
type IDs map[string][]IDRef

// Flatten returns every resolved ID regardless of category.
func (ids IDs) Flatten() []int64 {
	var out []int64
	for _, refs := range ids {
		for _, r := range refs {
			out = append(out, r.ID)
		}
	}
	return out
}
