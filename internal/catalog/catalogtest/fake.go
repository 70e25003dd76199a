// Package catalogtest provides an in-memory catalog.Querier for tests.
package catalogtest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jsaops/jsaingest/internal/catalog"
	"github.com/jsaops/jsaingest/internal/jcmt"
)

// Plane describes one archived plane for the fake catalog. Fixtures are
// declared flat; the fake reproduces the row shapes of the live queries,
// including the artifact self-join behavior.
type Plane struct {
	Collection    string
	ObservationID string
	ProductID     string
	DateObs       float64
	DateEnd       float64
	Release       string // RFC 3339 date or datetime; empty means no release
	RunID         string
	ArtifactURIs  []string
}

// Fake implements catalog.Querier from fixture data. The zero value is an
// empty catalog. Calls records every query made, one compact line each,
// so tests can assert on caching behavior.
type Fake struct {
	Planes     []Plane
	Subsystems map[string][]jcmt.Subsystem // keyed by observationID
	Proposals  map[string]catalog.Proposal

	// Err, when set, is returned by every query.
	Err error

	Calls []string
}

var _ catalog.Querier = (*Fake)(nil)

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallCount returns how many recorded calls start with prefix.
func (f *Fake) CallCount(prefix string) int {
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) memberRows(p Plane) []catalog.MemberPlane {
	var rows []catalog.MemberPlane
	for _, uri := range p.ArtifactURIs {
		rows = append(rows, catalog.MemberPlane{
			ObservationID: p.ObservationID,
			ProductID:     p.ProductID,
			DateObs:       p.DateObs,
			DateEnd:       p.DateEnd,
			Release:       parseRelease(p.Release),
			ArtifactURI:   uri,
		})
	}
	return rows
}

// parseRelease accepts the date formats tests naturally write.
func parseRelease(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	panic(fmt.Sprintf("catalogtest: unparseable release date %q", s))
}

func (f *Fake) ObservationPlanes(ctx context.Context, collection, observationID string) ([]catalog.MemberPlane, error) {
	f.record("ObservationPlanes %s/%s", collection, observationID)
	if f.Err != nil {
		return nil, f.Err
	}
	var rows []catalog.MemberPlane
	for _, p := range f.Planes {
		if p.Collection == collection && p.ObservationID == observationID {
			rows = append(rows, f.memberRows(p)...)
		}
	}
	return rows, nil
}

func (f *Fake) PlanesLikeObservationID(ctx context.Context, pattern string) ([]catalog.MemberPlane, error) {
	f.record("PlanesLikeObservationID %s", pattern)
	if f.Err != nil {
		return nil, f.Err
	}
	re := likePattern(pattern)
	var rows []catalog.MemberPlane
	for _, p := range f.Planes {
		if re.MatchString(p.ObservationID) {
			rows = append(rows, f.memberRows(p)...)
		}
	}
	return rows, nil
}

func (f *Fake) CollectionsWithObservationID(ctx context.Context, observationID string) ([]string, error) {
	f.record("CollectionsWithObservationID %s", observationID)
	if f.Err != nil {
		return nil, f.Err
	}
	seen := map[string]bool{}
	var collections []string
	for _, p := range f.Planes {
		if p.ObservationID == observationID && !seen[p.Collection] {
			seen[p.Collection] = true
			collections = append(collections, p.Collection)
		}
	}
	return collections, nil
}

func (f *Fake) ArtifactsForFileID(ctx context.Context, fileID string) ([]catalog.ArtifactPlane, error) {
	f.record("ArtifactsForFileID %s", fileID)
	if f.Err != nil {
		return nil, f.Err
	}
	var artifacts []catalog.ArtifactPlane
	for _, p := range f.Planes {
		hit := false
		for _, uri := range p.ArtifactURIs {
			if strings.HasSuffix(uri, "/"+fileID) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		// Like the live query's self-join, a hit returns every artifact
		// of the matching plane.
		for _, uri := range p.ArtifactURIs {
			artifacts = append(artifacts, catalog.ArtifactPlane{
				Collection:    p.Collection,
				ObservationID: p.ObservationID,
				ProductID:     p.ProductID,
				ArtifactURI:   uri,
			})
		}
	}
	return artifacts, nil
}

func (f *Fake) RunLineage(ctx context.Context, runID string) ([]catalog.LineagePlane, error) {
	f.record("RunLineage %s", runID)
	if f.Err != nil {
		return nil, f.Err
	}
	touched := map[string]bool{}
	for _, p := range f.Planes {
		if p.RunID == runID && runID != "" {
			touched[p.Collection+"/"+p.ObservationID] = true
		}
	}
	var planes []catalog.LineagePlane
	for _, p := range f.Planes {
		if touched[p.Collection+"/"+p.ObservationID] {
			planes = append(planes, catalog.LineagePlane{
				Collection:    p.Collection,
				ObservationID: p.ObservationID,
				ProductID:     p.ProductID,
				RunID:         p.RunID,
			})
		}
	}
	return planes, nil
}

func (f *Fake) HeterodyneSubsystems(ctx context.Context, backend, observationID string) ([]jcmt.Subsystem, error) {
	f.record("HeterodyneSubsystems %s %s", backend, observationID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Subsystems[observationID], nil
}

func (f *Fake) ProposalInfo(ctx context.Context, projectID string) (catalog.Proposal, error) {
	f.record("ProposalInfo %s", projectID)
	if f.Err != nil {
		return catalog.Proposal{}, f.Err
	}
	return f.Proposals[projectID], nil
}

// likePattern converts a SQL LIKE pattern to an anchored regexp.
func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
