// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package models

import (
	"slices"
	"time"
)

// Filter actions select which side of a killmail the side-dependent
// predicates (what, who, who_ignore) inspect.
const (
	ActionKill = "kill" // victim side
	ActionUse  = "use"  // attacker side
)

// Subscriber is one tenant (a chat server) and everything Kverna knows about it.
type Subscriber struct {
	ID      int64 `json:"id" validate:"required"`
	Channel int64 `json:"channel"`

	// Staging is the solar system ID range filters measure from.
	Staging *int64 `json:"staging" validate:"omitempty,eve_system"`

	// Lists maps a user-chosen name to a set of IDs (entities, types, systems,
	// constellations or regions).
	Lists map[string][]int64 `json:"lists"`

	Filters []Filter `json:"filters" validate:"dive"`

	// ReportedKillmails is the dedup ledger: killmail ID to the time it was
	// reported. Entries are never removed.
	ReportedKillmails map[int64]time.Time `json:"reported_killmail_id"`

	// Carried through from the legacy document untouched.
	ActiveSystems  map[string]any `json:"active_systems"`
	IgnoredSystems map[string]any `json:"ignored_systems"`
}

// Filter is a named set of predicates combined with logical AND.
// Empty list names and nil thresholds mean the predicate is not set.
type Filter struct {
	Name            string   `json:"name" validate:"required,max=100"`
	Action          string   `json:"action" validate:"oneof=kill use"`
	What            string   `json:"what"`
	Where           string   `json:"where"`
	Who             string   `json:"who"`
	WhoIgnore       string   `json:"who_ignore"`
	Range           *float64 `json:"range" validate:"omitempty,gte=0"`
	Ping            bool     `json:"ping"`
	IskValue        *float64 `json:"isk_value" validate:"omitempty,gte=0"`
	Items           string   `json:"items"`
	LowestSecurity  *float64 `json:"lowest_security" validate:"omitempty,gte=-1,lte=1"`
	HighestSecurity *float64 `json:"highest_security" validate:"omitempty,gte=-1,lte=1"`
	Enabled         bool     `json:"enabled"`
}

// NewSubscriber returns an empty subscriber as created on first contact.
func NewSubscriber(id int64) *Subscriber {
	s := &Subscriber{ID: id}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones.
func (s *Subscriber) Normalize() {
	if s.Lists == nil {
		s.Lists = make(map[string][]int64)
	}
	if s.Filters == nil {
		s.Filters = make([]Filter, 0)
	}
	if s.ReportedKillmails == nil {
		s.ReportedKillmails = make(map[int64]time.Time)
	}
	if s.ActiveSystems == nil {
		s.ActiveSystems = make(map[string]any)
	}
	if s.IgnoredSystems == nil {
		s.IgnoredSystems = make(map[string]any)
	}
}

// Clone returns a deep copy of s. Values inside the legacy system maps are
// shared; nothing in Kverna mutates them.
func (s *Subscriber) Clone() *Subscriber {
	c := *s
	if s.Staging != nil {
		staging := *s.Staging
		c.Staging = &staging
	}
	c.Lists = make(map[string][]int64, len(s.Lists))
	for name, ids := range s.Lists {
		c.Lists[name] = slices.Clone(ids)
	}
	c.Filters = make([]Filter, len(s.Filters))
	for i := range s.Filters {
		c.Filters[i] = s.Filters[i].Clone()
	}
	c.ReportedKillmails = make(map[int64]time.Time, len(s.ReportedKillmails))
	for id, at := range s.ReportedKillmails {
		c.ReportedKillmails[id] = at
	}
	c.ActiveSystems = make(map[string]any, len(s.ActiveSystems))
	for k, v := range s.ActiveSystems {
		c.ActiveSystems[k] = v
	}
	c.IgnoredSystems = make(map[string]any, len(s.IgnoredSystems))
	for k, v := range s.IgnoredSystems {
		c.IgnoredSystems[k] = v
	}
	return &c
}

// HasReported reports whether killmailID is already in the ledger.
func (s *Subscriber) HasReported(killmailID int64) bool {
	_, ok := s.ReportedKillmails[killmailID]
	return ok
}

// Filter returns the filter with the given name.
func (s *Subscriber) Filter(name string) (*Filter, bool) {
	for i := range s.Filters {
		if s.Filters[i].Name == name {
			return &s.Filters[i], true
		}
	}
	return nil, false
}

// EnabledFilters returns copies of the enabled filters in order.
func (s *Subscriber) EnabledFilters() []Filter {
	out := make([]Filter, 0, len(s.Filters))
	for i := range s.Filters {
		if s.Filters[i].Enabled {
			out = append(out, s.Filters[i].Clone())
		}
	}
	return out
}

// Defaults sets the values a filter takes when the field is absent.
func (f *Filter) Defaults() {
	f.Action = ActionKill
	f.Enabled = true
}

// Normalize maps an unrecognized action to kill.
func (f *Filter) Normalize() {
	if f.Action != ActionKill && f.Action != ActionUse {
		f.Action = ActionKill
	}
}

// Clone returns a deep copy of f.
func (f *Filter) Clone() Filter {
	c := *f
	c.Range = cloneFloat(f.Range)
	c.IskValue = cloneFloat(f.IskValue)
	c.LowestSecurity = cloneFloat(f.LowestSecurity)
	c.HighestSecurity = cloneFloat(f.HighestSecurity)
	return c
}

// ReferencedLists returns the names of the lists the filter uses.
func (f *Filter) ReferencedLists() []string {
	var names []string
	for _, n := range []string{f.Where, f.Items, f.What, f.Who, f.WhoIgnore} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// PredicateCount returns how many predicates the filter sets.
func (f *Filter) PredicateCount() int {
	n := len(f.ReferencedLists())
	for _, v := range []*float64{f.IskValue, f.Range, f.LowestSecurity, f.HighestSecurity} {
		if v != nil {
			n++
		}
	}
	return n
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
