// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/kverna/internal/logging"
	"github.com/tomtom215/kverna/internal/metrics"
	"github.com/tomtom215/kverna/internal/models"
	"github.com/tomtom215/kverna/internal/validation"
)

// errNoMatch is returned by a predicate that evaluated false; it cancels the
// remaining predicates of the filter.
var errNoMatch = errors.New("predicate did not match")

// predicate is one selected filter condition.
type predicate struct {
	name  string
	match func(ctx context.Context) (bool, error)
}

// predicateError attributes a failure to the predicate that raised it.
type predicateError struct {
	name string
	err  error
}

func (e *predicateError) Error() string {
	return e.name + ": " + e.err.Error()
}

func (e *predicateError) Unwrap() error {
	return e.err
}

// Evaluate reports whether kill matches f for sub. It has no side effects
// beyond logging and metrics. A returned error means a predicate failed to
// evaluate; the filter is then treated as not matching.
func (e *Engine) Evaluate(ctx context.Context, kill *models.Kill, sub *models.Subscriber, f *models.Filter) (bool, error) {
	e.metricsMu.Lock()
	e.metricsStore.FiltersEvaluated++
	e.metricsMu.Unlock()

	preds, valid := e.predicates(ctx, kill, sub, f)
	if len(preds) == 0 {
		if !valid {
			// predicates already logged the configuration error
			metrics.RecordFilterEvaluation("no_match")
			return false, nil
		}
		if e.allowVacuous {
			metrics.RecordFilterEvaluation("match")
			return true, nil
		}
		e.logConfigError(ctx, errors.New("filter sets no predicates"), sub, f)
		metrics.RecordFilterEvaluation("no_match")
		return false, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range preds {
		g.Go(func() error {
			ok, err := p.match(gctx)
			if err != nil {
				return &predicateError{name: p.name, err: err}
			}
			if !ok {
				return errNoMatch
			}
			return nil
		})
	}

	err := g.Wait()
	switch {
	case err == nil:
		metrics.RecordFilterEvaluation("match")
		return true, nil
	case errors.Is(err, errNoMatch):
		metrics.RecordFilterEvaluation("no_match")
		return false, nil
	}

	metrics.RecordFilterEvaluation("error")
	var pe *predicateError
	if errors.As(err, &pe) {
		metrics.PredicateErrors.WithLabelValues(pe.name).Inc()
	}

	if errors.Is(err, ErrMissingList) {
		e.logConfigError(ctx, err, sub, f)
		return false, err
	}

	e.metricsMu.Lock()
	e.metricsStore.PredicateErrors++
	e.metricsMu.Unlock()
	logging.Ctx(ctx).Warn().Err(err).
		Int64("subscriber_id", sub.ID).
		Str("filter", f.Name).
		Msg("predicate evaluation failed")
	return false, err
}

// predicates selects one predicate per set filter field. valid is false when
// the filter's action is unknown; that error has been logged and the
// action-dependent predicates are left out.
func (e *Engine) predicates(ctx context.Context, kill *models.Kill, sub *models.Subscriber, f *models.Filter) (preds []predicate, valid bool) {
	km := &kill.Killmail

	if f.Where != "" {
		preds = append(preds, predicate{"where", func(ctx context.Context) (bool, error) {
			list, err := lookupList(sub, f.Where)
			if err != nil {
				return false, err
			}
			return e.matchWhere(ctx, km.SolarSystemID, list)
		}})
	}

	if f.IskValue != nil {
		floor := *f.IskValue
		preds = append(preds, predicate{"isk_value", func(context.Context) (bool, error) {
			return kill.Zkb.TotalValue != nil && *kill.Zkb.TotalValue >= floor, nil
		}})
	}

	if f.Range != nil && sub.Staging != nil {
		maxLY, staging := *f.Range, *sub.Staging
		preds = append(preds, predicate{"range", func(ctx context.Context) (bool, error) {
			return e.matchRange(ctx, staging, km.SolarSystemID, maxLY)
		}})
	}

	if f.Items != "" {
		preds = append(preds, listPredicate("items", sub, f.Items, km.Victim.ItemTypes(), true))
	}

	if f.LowestSecurity != nil {
		low := *f.LowestSecurity
		preds = append(preds, predicate{"lowest_security", func(ctx context.Context) (bool, error) {
			sys, err := e.enricher.SystemInfo(ctx, km.SolarSystemID)
			if err != nil {
				return false, err
			}
			return sys.SecurityStatus >= low, nil
		}})
	}

	if f.HighestSecurity != nil {
		high := *f.HighestSecurity
		preds = append(preds, predicate{"highest_security", func(ctx context.Context) (bool, error) {
			sys, err := e.enricher.SystemInfo(ctx, km.SolarSystemID)
			if err != nil {
				return false, err
			}
			return sys.SecurityStatus <= high, nil
		}})
	}

	var ships, identities []int64
	switch f.Action {
	case models.ActionKill:
		ships = km.VictimShipTypes()
		identities = km.Victim.Identities()
	case models.ActionUse:
		ships = km.AttackerShipTypes()
		identities = km.AttackerIdentities()
	default:
		e.logConfigError(ctx, fmt.Errorf("%w: %q", ErrUnknownAction, f.Action), sub, f)
		return preds, false
	}

	if f.What != "" {
		preds = append(preds, listPredicate("what", sub, f.What, ships, true))
	}
	if f.Who != "" {
		preds = append(preds, listPredicate("who", sub, f.Who, identities, true))
	}
	if f.WhoIgnore != "" {
		preds = append(preds, listPredicate("who_ignore", sub, f.WhoIgnore, identities, false))
	}

	return preds, true
}

// listPredicate tests whether any of ids is in the named list. With want
// false it holds when none is.
func listPredicate(name string, sub *models.Subscriber, listName string, ids []int64, want bool) predicate {
	return predicate{name, func(context.Context) (bool, error) {
		list, err := lookupList(sub, listName)
		if err != nil {
			return false, err
		}
		return intersects(ids, list) == want, nil
	}}
}

// matchWhere tests system membership, falling back to the system's
// constellation and region only when the list holds such IDs.
func (e *Engine) matchWhere(ctx context.Context, systemID int64, list []int64) (bool, error) {
	if slices.Contains(list, systemID) {
		return true, nil
	}

	hasConstellation := slices.ContainsFunc(list, validation.IsConstellationID)
	hasRegion := slices.ContainsFunc(list, validation.IsRegionID)
	if !hasConstellation && !hasRegion {
		return false, nil
	}

	sys, err := e.enricher.SystemInfo(ctx, systemID)
	if err != nil {
		return false, err
	}
	if slices.Contains(list, sys.ConstellationID) {
		return true, nil
	}
	if !hasRegion {
		return false, nil
	}

	con, err := e.enricher.Constellation(ctx, sys.ConstellationID)
	if err != nil {
		return false, err
	}
	return slices.Contains(list, con.RegionID), nil
}

// matchRange tests the light-year distance between two systems.
func (e *Engine) matchRange(ctx context.Context, stagingID, systemID int64, maxLY float64) (bool, error) {
	staging, err := e.enricher.SystemInfo(ctx, stagingID)
	if err != nil {
		return false, fmt.Errorf("staging system %d: %w", stagingID, err)
	}
	sys, err := e.enricher.SystemInfo(ctx, systemID)
	if err != nil {
		return false, err
	}
	return staging.Position.DistanceLightYears(sys.Position) <= maxLY, nil
}

func lookupList(sub *models.Subscriber, name string) ([]int64, error) {
	list, ok := sub.Lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingList, name)
	}
	return list, nil
}

func intersects(ids, list []int64) bool {
	if len(ids) == 0 || len(list) == 0 {
		return false
	}
	set := make(map[int64]struct{}, len(list))
	for _, id := range list {
		set[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
