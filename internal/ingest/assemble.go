package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
)

// writeObservation materializes one planned observation, merging its
// planes into any record the archive already holds so planes from
// earlier batches survive. Returns the number of obsolete planes
// pruned from the record along the way.
func (s *Session) writeObservation(ctx context.Context, planned *plannedObservation) (planesRemoved int, err error) {
	uri := planned.uri
	obs, err := s.rep.Read(ctx, uri)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("reading observation %s: %w", uri, err)
		}
		obs = &caom.Observation{Collection: uri.Collection, ObservationID: uri.ObservationID}
	}

	obs.Algorithm = planned.algorithm
	if planned.obsType != "" {
		obs.Type = planned.obsType
	}
	if planned.intentSet {
		obs.Intent = planned.intent
	}
	if planned.metaRelease != nil {
		rel := *planned.metaRelease
		obs.MetaRelease = &rel
	}
	if planned.proposal != nil {
		obs.Proposal = planned.proposal
	}
	if planned.target != nil {
		obs.Target = planned.target
	}
	obs.Telescope = &caom.Telescope{Name: archiveName}
	if planned.instrument != nil {
		obs.Instrument = planned.instrument
	}
	if planned.environment != nil {
		obs.Environment = planned.environment
	}
	if len(planned.members) > 0 {
		obs.SetMembers(planned.members)
	}

	for _, prodID := range planned.sortedPlaneIDs() {
		obs.SetPlane(planned.planes[prodID].toCAOM())
	}

	planesRemoved = s.pruneObsoletePlanes(obs, planned)

	if err := obs.Validate(); err != nil {
		return planesRemoved, fmt.Errorf("assembling observation %s: %w", uri, err)
	}
	if s.cfg.DryRun {
		s.log.Info("dry run: skipping store", "observation", uri.String(), "planes", len(obs.Planes))
		return planesRemoved, nil
	}
	if err := s.rep.Write(ctx, obs); err != nil {
		return planesRemoved, fmt.Errorf("storing observation %s: %w", uri, err)
	}
	s.log.Info("stored observation", "observation", uri.String(), "planes", len(obs.Planes))
	return planesRemoved, nil
}

// toCAOM materializes the staged plane.
func (pl *plannedPlane) toCAOM() *caom.Plane {
	p := &caom.Plane{ProductID: pl.productID}
	if pl.metaRelease != nil {
		rel := *pl.metaRelease
		p.MetaRelease = &rel
	}
	if pl.dataRelease != nil {
		rel := *pl.dataRelease
		p.DataRelease = &rel
	}
	p.DataProductType = pl.dataProductType
	if pl.haveCalibration {
		p.CalibrationLevel = pl.calibrationLevel
	}
	p.Bandpass = pl.bandpass
	if pl.transition != nil {
		tr := *pl.transition
		p.Transition = &tr
	}
	if pl.provenance != nil {
		prov := *pl.provenance
		if len(pl.inputs) > 0 {
			inputs := make([]string, 0, len(pl.inputs))
			for _, in := range pl.inputs {
				inputs = append(inputs, in.String())
			}
			sort.Strings(inputs)
			prov.Inputs = inputs
		}
		p.Provenance = &prov
	}
	if len(pl.memberTimes) > 0 {
		p.TimeBounds = memberInterval(pl.memberTimes)
	}
	for _, art := range pl.artifacts {
		a := *art
		p.Artifacts = append(p.Artifacts, &a)
	}
	return p
}

// memberInterval folds per-member exposure times into the plane's time
// bounds, one sample per member, sorted by start time.
func memberInterval(times map[caom.ObservationURI][2]float64) *caom.Interval {
	samples := make([]caom.SubInterval, 0, len(times))
	for _, t := range times {
		samples = append(samples, caom.SubInterval{Lower: t[0], Upper: t[1]})
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Lower != samples[j].Lower {
			return samples[i].Lower < samples[j].Lower
		}
		return samples[i].Upper < samples[j].Upper
	})
	iv := &caom.Interval{Lower: samples[0].Lower, Upper: samples[0].Upper}
	for _, sub := range samples[1:] {
		if sub.Lower < iv.Lower {
			iv.Lower = sub.Lower
		}
		if sub.Upper > iv.Upper {
			iv.Upper = sub.Upper
		}
	}
	iv.Samples = samples
	return iv
}
