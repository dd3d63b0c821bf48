package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/iliyamo/dining-reservation/internal/metrics"
	"github.com/iliyamo/dining-reservation/internal/normalize"
	"github.com/iliyamo/dining-reservation/internal/repository"
)

// maxSpacingHours keeps the spacing window inside time.Duration range.
const maxSpacingHours = 1e6

// TablesAreValid reports whether every number is part of the inventory.
// An empty list is not valid.  Storage failures report false.
func (s *ReservationService) TablesAreValid(ctx context.Context, tables []int) bool {
	ok, err := s.tablesAreValid(ctx, s.db, tables, false)
	if err != nil {
		s.log.Error("table validation failed", "tables", tables, "error", err)
		return false
	}
	return ok
}

func (s *ReservationService) tablesAreValid(ctx context.Context, q repository.Querier, tables []int, lockRows bool) (bool, error) {
	if len(tables) == 0 {
		return false, nil
	}
	missing, err := s.missingTables(ctx, q, tables, lockRows)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// missingTables returns the numbers in tables that are not part of the
// inventory, in caller order and without repeats.
func (s *ReservationService) missingTables(ctx context.Context, q repository.Querier, tables []int, lockRows bool) ([]int, error) {
	uniq := uniqueTables(tables)
	existing, err := s.tables.ExistingTx(ctx, q, uniq, lockRows)
	if err != nil {
		return nil, err
	}
	known := make(map[int]struct{}, len(existing))
	for _, n := range existing {
		known[n] = struct{}{}
	}
	var missing []int
	for _, n := range uniq {
		if _, ok := known[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

// validSpacing reports whether spacingHours is a usable window length.
func validSpacing(spacingHours float64) bool {
	return !math.IsNaN(spacingHours) && !math.IsInf(spacingHours, 0)
}

// IsTableAvailable reports whether table has no reservation closer than
// spacingHours to at.  A gap exactly equal to the spacing is allowed.  With
// spacingHours <= 0 only an identical timestamp conflicts.  Malformed input,
// a non-finite spacing and storage failures report false.
func (s *ReservationService) IsTableAvailable(ctx context.Context, table int, at string, spacingHours float64) bool {
	if !validSpacing(spacingHours) {
		s.log.Warn("availability check with invalid spacing", "spacing_hours", spacingHours)
		return false
	}
	canonical, err := normalize.NormalizeDatetime(at)
	if err != nil {
		s.log.Warn("availability check with invalid datetime", "datetime", at, "error", err)
		return false
	}
	ok, err := s.tableAvailable(ctx, s.db, table, canonical, spacingHours)
	if err != nil {
		s.log.Error("availability check failed", "table", table, "datetime", canonical, "error", err)
		return false
	}
	return ok
}

func (s *ReservationService) tableAvailable(ctx context.Context, q repository.Querier, table int, at string, spacingHours float64) (bool, error) {
	if !validSpacing(spacingHours) {
		return false, fmt.Errorf("%w: spacing_hours must be finite", ErrInvalidParameter)
	}
	if spacingHours <= 0 {
		times, err := s.assignments.TimesForTableTx(ctx, q, table, at, at)
		if err != nil {
			return false, err
		}
		if len(times) > 0 {
			metrics.TableConflictsTotal.Inc()
			return false, nil
		}
		return true, nil
	}

	t, err := normalize.ParseCanonical(at)
	if err != nil {
		return false, err
	}
	if spacingHours > maxSpacingHours {
		spacingHours = maxSpacingHours
	}
	window := time.Duration(spacingHours * float64(time.Hour))
	if window <= 0 {
		window = 1
	}
	// The string range is one second wider than the window on each side;
	// the exact open-interval test happens below.
	from := normalize.FormatCanonical(t.Add(-window - time.Second))
	to := normalize.FormatCanonical(t.Add(window + time.Second))
	times, err := s.assignments.TimesForTableTx(ctx, q, table, from, to)
	if err != nil {
		return false, err
	}
	for _, other := range times {
		ot, err := normalize.ParseCanonical(other)
		if err != nil {
			return false, err
		}
		gap := t.Sub(ot)
		if gap < 0 {
			gap = -gap
		}
		if gap < window {
			metrics.TableConflictsTotal.Inc()
			return false, nil
		}
	}
	return true, nil
}

// uniqueTables drops repeated numbers, keeping first-seen order.
func uniqueTables(tables []int) []int {
	seen := make(map[int]struct{}, len(tables))
	out := make([]int, 0, len(tables))
	for _, n := range tables {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
