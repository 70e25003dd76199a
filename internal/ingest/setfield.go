package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
)

// SetFieldOptions selects the recipe instance to update and the fields
// to set on the planes it produced. At least one field is required.
type SetFieldOptions struct {
	RunID       string
	ReleaseDate time.Time
	Reference   string
}

// SetField updates the release date and provenance reference of every
// archived plane the given recipe instance produced. The release date
// also becomes the metadata release of the owning observations.
// Returns the number of planes updated.
func (s *Session) SetField(ctx context.Context, opts SetFieldOptions) (int, error) {
	if opts.RunID == "" {
		return 0, errors.New("a runID is required")
	}
	if opts.ReleaseDate.IsZero() && opts.Reference == "" {
		return 0, errors.New("nothing to set: give a release date or a reference")
	}

	rows, err := s.cat.RunLineage(ctx, opts.RunID)
	if err != nil {
		return 0, fmt.Errorf("querying lineage of runID %s: %w", opts.RunID, err)
	}
	byObs := map[caom.ObservationURI]map[string]bool{}
	for _, row := range rows {
		if row.RunID != opts.RunID {
			continue
		}
		uri := caom.NewObservationURI(row.Collection, row.ObservationID)
		if byObs[uri] == nil {
			byObs[uri] = map[string]bool{}
		}
		byObs[uri][row.ProductID] = true
	}

	uris := make([]caom.ObservationURI, 0, len(byObs))
	for uri := range byObs {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i].String() < uris[j].String() })

	updated := 0
	for _, uri := range uris {
		obs, err := s.rep.Read(ctx, uri)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("observation in lineage but not in archive", "observation", uri.String())
				continue
			}
			return updated, fmt.Errorf("reading observation %s: %w", uri, err)
		}

		changed := 0
		for _, prodID := range sortedFlagIDs(byObs[uri]) {
			p := obs.Plane(prodID)
			if p == nil {
				continue
			}
			if !opts.ReleaseDate.IsZero() {
				rel := opts.ReleaseDate
				p.MetaRelease = &rel
				p.DataRelease = &rel
			}
			if opts.Reference != "" {
				if p.Provenance == nil {
					p.Provenance = &caom.Provenance{}
				}
				p.Provenance.Reference = opts.Reference
			}
			s.log.Info("updated plane", "plane", uri.Plane(prodID).String())
			changed++
		}
		if changed == 0 {
			continue
		}
		if !opts.ReleaseDate.IsZero() {
			rel := opts.ReleaseDate
			obs.MetaRelease = &rel
		}
		updated += changed

		if s.cfg.DryRun {
			s.log.Info("dry run: skipping store", "observation", uri.String())
			continue
		}
		if err := s.rep.Write(ctx, obs); err != nil {
			return updated, fmt.Errorf("storing observation %s: %w", uri, err)
		}
	}
	return updated, nil
}

// ParseReleaseDate accepts YYYYMMDD or YYYY-MM-DD and returns midnight
// UTC of that day.
func ParseReleaseDate(value string) (time.Time, error) {
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("release date %q is not of the form YYYYMMDD or YYYY-MM-DD", value)
}
