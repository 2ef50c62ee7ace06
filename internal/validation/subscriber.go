// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package validation

import (
	"fmt"

	"github.com/tomtom215/kverna/internal/models"
)

// SubscriberOptions tunes the rules ValidateSubscriber applies.
type SubscriberOptions struct {
	// AllowVacuousFilters accepts filters with no predicates set.
	AllowVacuousFilters bool
}

// ValidateSubscriber checks a subscriber before it is saved: struct tags,
// unique filter names, referenced lists that exist, at least one predicate
// per filter and a low security bound not above the high one.
// Returns nil if the subscriber is valid.
func ValidateSubscriber(sub *models.Subscriber, opts SubscriberOptions) *RequestValidationError {
	ve := ValidateStruct(sub)
	if ve == nil {
		ve = &RequestValidationError{}
	}

	seen := make(map[string]bool, len(sub.Filters))
	for i := range sub.Filters {
		f := &sub.Filters[i]
		field := fmt.Sprintf("filters[%d]", i)

		if seen[f.Name] {
			ve.Add(field+".name", "unique", fmt.Sprintf("filter name %q is used more than once", f.Name), f.Name)
		}
		seen[f.Name] = true

		for _, list := range f.ReferencedLists() {
			if _, ok := sub.Lists[list]; !ok {
				ve.Add(field, "list_exists", fmt.Sprintf("filter %q references unknown list %q", f.Name, list), list)
			}
		}

		if !opts.AllowVacuousFilters && f.PredicateCount() == 0 {
			ve.Add(field, "predicate", fmt.Sprintf("filter %q sets no predicates and would match every killmail", f.Name), nil)
		}

		if f.LowestSecurity != nil && f.HighestSecurity != nil && *f.LowestSecurity > *f.HighestSecurity {
			ve.Add(field+".lowest_security", "ltefield", fmt.Sprintf("filter %q lowest_security is above highest_security", f.Name), *f.LowestSecurity)
		}

		if f.Range != nil && sub.Staging == nil {
			ve.Add(field+".range", "staging", fmt.Sprintf("filter %q sets range but the subscriber has no staging system", f.Name), *f.Range)
		}
	}

	if len(ve.Violations) == 0 {
		return nil
	}
	return ve
}
