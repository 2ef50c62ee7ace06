// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package store

import (
	"cmp"
	"slices"

	"github.com/goccy/go-json"

	"github.com/tomtom215/kverna/internal/decode"
	"github.com/tomtom215/kverna/internal/models"
)

// Document is the persisted form of the subscriber collection. Field names
// match the legacy state file so an existing config.json loads unchanged.
type Document struct {
	Guilds []*models.Subscriber `json:"guilds"`
}

// EncodeDocument renders subscribers in ID order.
func EncodeDocument(subscribers map[int64]*models.Subscriber) ([]byte, error) {
	doc := Document{Guilds: make([]*models.Subscriber, 0, len(subscribers))}
	for _, sub := range subscribers {
		doc.Guilds = append(doc.Guilds, sub)
	}
	slices.SortFunc(doc.Guilds, func(a, b *models.Subscriber) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeDocument parses a stored document through the lenient decoder. Empty
// input is an empty collection. A later entry replaces an earlier one with
// the same ID.
func DecodeDocument(data []byte) (map[int64]*models.Subscriber, error) {
	subscribers := make(map[int64]*models.Subscriber)
	if len(data) == 0 {
		return subscribers, nil
	}

	var doc Document
	if err := decode.Decode(data, &doc); err != nil {
		return nil, err
	}
	for _, sub := range doc.Guilds {
		if sub == nil {
			continue
		}
		sub.Normalize()
		subscribers[sub.ID] = sub
	}
	return subscribers, nil
}

