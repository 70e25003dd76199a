package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
)

// noteRunID records which archived planes the given recipe instance
// produced. The lineage query returns every plane of every observation
// in which the instance left at least one plane; a plane whose own
// runID matches the instance, directly or through a configured alias,
// is a removal candidate unless this batch rewrites it. The first
// answer per plane wins, so planes shared between instances keep the
// disposition of the instance seen first.
func (s *Session) noteRunID(ctx context.Context, runID string) error {
	if s.seenRunIDs[runID] {
		return nil
	}
	s.seenRunIDs[runID] = true

	rows, err := s.cat.RunLineage(ctx, runID)
	if err != nil {
		return fmt.Errorf("querying lineage of runID %s: %w", runID, err)
	}
	alias := s.cfg.RunIDAliases[runID]
	if alias != "" {
		more, err := s.cat.RunLineage(ctx, alias)
		if err != nil {
			return fmt.Errorf("querying lineage of runID %s: %w", alias, err)
		}
		rows = append(rows, more...)
	}
	for _, row := range rows {
		if row.Collection != s.cfg.Collection {
			continue
		}
		uri := caom.NewObservationURI(row.Collection, row.ObservationID)
		planes := s.removePlan[uri]
		if planes == nil {
			planes = make(map[string]bool)
			s.removePlan[uri] = planes
		}
		if _, seen := planes[row.ProductID]; !seen {
			planes[row.ProductID] = row.RunID == runID || (alias != "" && row.RunID == alias)
		}
	}
	return nil
}

// pruneObsoletePlanes drops planes of obs that this batch's recipe
// instances supersede and the batch did not rewrite. Called while obs
// is open for writing; the observation's cleanup entry is consumed.
// Entries for observations the batch never writes are handled by
// removeObsolete afterwards.
func (s *Session) pruneObsoletePlanes(obs *caom.Observation, planned *plannedObservation) int {
	uri := obs.URI()
	flags, ok := s.removePlan[uri]
	if !ok {
		return 0
	}
	removed := 0
	for _, prodID := range sortedFlagIDs(flags) {
		if !flags[prodID] {
			continue
		}
		if _, ok := planned.planes[prodID]; ok {
			continue
		}
		if obs.RemovePlane(prodID) {
			s.log.Warn("removing obsolete plane", "plane", uri.Plane(prodID).String())
			removed++
		}
	}
	delete(s.removePlan, uri)
	return removed
}

// removeObsolete disposes of cleanup entries for observations the
// batch never rewrote. When every remaining plane of such an
// observation came from the batch's recipe instances the whole record
// is removed; otherwise only the matching planes are dropped and the
// record is written back.
func (s *Session) removeObsolete(ctx context.Context) (obsRemoved, planesRemoved int, err error) {
	// When the batch staged nothing at all, every observation the
	// recipe instances touched is output of a withdrawn product set
	// and goes wholesale.
	batchEmpty := len(s.planned) == 0

	for _, uri := range sortedRemovalURIs(s.removePlan) {
		flags := s.removePlan[uri]
		delete(s.removePlan, uri)

		if batchEmpty {
			s.log.Warn("removing obsolete observation", "observation", uri.String())
			if !s.cfg.DryRun {
				if err := s.rep.Remove(ctx, uri); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return obsRemoved, planesRemoved, fmt.Errorf("removing observation %s: %w", uri, err)
				}
			}
			obsRemoved++
			continue
		}

		allMatch, anyMatch := true, false
		for _, eq := range flags {
			if eq {
				anyMatch = true
			} else {
				allMatch = false
			}
		}
		if !anyMatch {
			continue
		}

		if allMatch {
			s.log.Warn("removing obsolete observation", "observation", uri.String())
			if s.cfg.DryRun {
				obsRemoved++
				continue
			}
			if err := s.rep.Remove(ctx, uri); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return obsRemoved, planesRemoved, fmt.Errorf("removing observation %s: %w", uri, err)
			}
			obsRemoved++
			continue
		}

		// Mixed lineage: only the matching planes go.
		obs, err := s.rep.Read(ctx, uri)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return obsRemoved, planesRemoved, fmt.Errorf("reading observation %s: %w", uri, err)
		}
		changed := 0
		for _, prodID := range sortedFlagIDs(flags) {
			if !flags[prodID] {
				continue
			}
			if obs.RemovePlane(prodID) {
				s.log.Warn("removing obsolete plane", "plane", uri.Plane(prodID).String())
				changed++
			}
		}
		if changed > 0 && !s.cfg.DryRun {
			if err := s.rep.Write(ctx, obs); err != nil {
				return obsRemoved, planesRemoved, fmt.Errorf("storing observation %s: %w", uri, err)
			}
		}
		planesRemoved += changed
	}
	return obsRemoved, planesRemoved, nil
}

func sortedFlagIDs(flags map[string]bool) []string {
	ids := make([]string, 0, len(flags))
	for id := range flags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedRemovalURIs(plan map[caom.ObservationURI]map[string]bool) []caom.ObservationURI {
	uris := make([]caom.ObservationURI, 0, len(plan))
	for uri := range plan {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i].String() < uris[j].String() })
	return uris
}
