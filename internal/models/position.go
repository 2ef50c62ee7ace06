// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package models

import "math"

// LightYear is one light year in metres, the unit of EVE map coordinates.
const LightYear = 9.4607e15

// Position is a point in EVE space, in metres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Norm returns the Euclidean length of p.
func (p Position) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// DistanceLightYears returns the distance between p and o in light years.
func (p Position) DistanceLightYears(o Position) float64 {
	return p.Sub(o).Norm() / LightYear
}
