package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/catalog/catalogtest"
	"github.com/jsaops/jsaingest/internal/repository"
)

func TestNoteRunID(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000123"},
		{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
			ProductID: "cube-850um", RunID: "jac-000000999"},
	}}
	s, _ := newTestSession(t, Config{}, fake)

	require.NoError(t, s.noteRunID(context.Background(), "jac-000000123"))

	uri := caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit")
	require.Contains(t, s.removePlan, uri)
	assert.Equal(t, map[string]bool{
		"reduced-850um": true,
		"cube-850um":    false,
	}, s.removePlan[uri])

	// The lineage of a runID is queried once per batch.
	require.NoError(t, s.noteRunID(context.Background(), "jac-000000123"))
	assert.Equal(t, 1, fake.CallCount("RunLineage"))
}

func TestNoteRunIDAlias(t *testing.T) {
	// The archived planes carry the runID format of an earlier pipeline
	// release; the alias maps the current identifier back to it.
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "jcmts20100312_850um_nit",
			ProductID: "reduced-850um", RunID: "20140701183000"},
	}}
	s, _ := newTestSession(t, Config{
		RunIDAliases: map[string]string{"jac-000000123": "20140701183000"},
	}, fake)

	require.NoError(t, s.noteRunID(context.Background(), "jac-000000123"))
	assert.Equal(t, 2, fake.CallCount("RunLineage"))

	uri := caom.NewObservationURI("JCMT", "jcmts20100312_850um_nit")
	assert.Equal(t, map[string]bool{"reduced-850um": true}, s.removePlan[uri])
}

func TestNoteRunIDOtherCollection(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMTLS", ObservationID: "cls-dr1-field7-850um",
			ProductID: "reduced-850um-dr1", RunID: "jac-000000123"},
	}}
	s, _ := newTestSession(t, Config{}, fake)

	require.NoError(t, s.noteRunID(context.Background(), "jac-000000123"))
	assert.Empty(t, s.removePlan)
}

func TestPruneObsoletePlanes(t *testing.T) {
	s, _ := newTestSession(t, Config{}, &catalogtest.Fake{})

	uri := caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit")
	s.removePlan[uri] = map[string]bool{
		"reduced-850um": true,
		"cube-850um":    true,
		"raw-850um":     false,
	}

	planned := newPlannedObservation(uri)
	planned.planes["reduced-850um"] = newPlannedPlane("reduced-850um")

	obs := &caom.Observation{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit", Algorithm: "night"}
	obs.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	obs.SetPlane(&caom.Plane{ProductID: "cube-850um"})
	obs.SetPlane(&caom.Plane{ProductID: "raw-850um"})

	removed := s.pruneObsoletePlanes(obs, planned)

	// Only the flagged plane the batch is not rewriting goes; the entry
	// is consumed either way.
	assert.Equal(t, 1, removed)
	assert.Nil(t, obs.Plane("cube-850um"))
	assert.NotNil(t, obs.Plane("reduced-850um"))
	assert.NotNil(t, obs.Plane("raw-850um"))
	assert.Empty(t, s.removePlan)
}

func TestRemoveObsoleteWholeObservation(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "jcmts20090110_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000123"},
	}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	obs := &caom.Observation{Collection: "JCMT", ObservationID: "jcmts20090110_850um_nit", Algorithm: "night"}
	obs.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	require.NoError(t, rep.Write(ctx, obs))

	require.NoError(t, s.noteRunID(ctx, "jac-000000123"))
	obsRemoved, planesRemoved, err := s.removeObsolete(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, obsRemoved)
	assert.Zero(t, planesRemoved)
	_, err = rep.Read(ctx, obs.URI())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRemoveObsoleteMixedLineage(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "acsis_00026_20150403T065049",
			ProductID: "reduced-345796MHz-250MHzx4096-1", RunID: "jac-000000123"},
		{Collection: "JCMT", ObservationID: "acsis_00026_20150403T065049",
			ProductID: "raw-345796MHz-250MHzx4096-1", RunID: ""},
	}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	obs := &caom.Observation{Collection: "JCMT", ObservationID: "acsis_00026_20150403T065049", Algorithm: caom.AlgorithmExposure}
	obs.SetPlane(&caom.Plane{ProductID: "reduced-345796MHz-250MHzx4096-1"})
	obs.SetPlane(&caom.Plane{ProductID: "raw-345796MHz-250MHzx4096-1"})
	require.NoError(t, rep.Write(ctx, obs))

	stageUnrelatedObservation(s)
	require.NoError(t, s.noteRunID(ctx, "jac-000000123"))
	obsRemoved, planesRemoved, err := s.removeObsolete(ctx)
	require.NoError(t, err)

	// The raw plane belongs to the telescope, not the recipe instance,
	// so the observation survives with that plane alone.
	assert.Zero(t, obsRemoved)
	assert.Equal(t, 1, planesRemoved)
	got, err := rep.Read(ctx, obs.URI())
	require.NoError(t, err)
	assert.Equal(t, []string{"raw-345796MHz-250MHzx4096-1"}, got.ProductIDs())
}

// stageUnrelatedObservation marks the batch as having produced
// something, so cleanup works plane by plane instead of discarding
// whole observations as the output of a withdrawn product set.
func stageUnrelatedObservation(s *Session) {
	uri := caom.NewObservationURI("JCMT", "jcmts20220101_850um_nit")
	s.planned[uri] = newPlannedObservation(uri)
}

func TestRemoveObsoleteEmptyBatch(t *testing.T) {
	// A batch that stages nothing withdraws the whole product set of
	// its recipe instances: their observations go even when some of
	// the archived planes came from other runs.
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "acsis_00026_20150403T065049",
			ProductID: "reduced-345796MHz-250MHzx4096-1", RunID: "jac-000000123"},
		{Collection: "JCMT", ObservationID: "acsis_00026_20150403T065049",
			ProductID: "cube-345796MHz-250MHzx4096-1", RunID: "jac-000000999"},
	}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	obs := &caom.Observation{Collection: "JCMT", ObservationID: "acsis_00026_20150403T065049", Algorithm: caom.AlgorithmExposure}
	obs.SetPlane(&caom.Plane{ProductID: "reduced-345796MHz-250MHzx4096-1"})
	obs.SetPlane(&caom.Plane{ProductID: "cube-345796MHz-250MHzx4096-1"})
	require.NoError(t, rep.Write(ctx, obs))

	require.NoError(t, s.noteRunID(ctx, "jac-000000123"))
	obsRemoved, planesRemoved, err := s.removeObsolete(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, obsRemoved)
	assert.Zero(t, planesRemoved)
	_, err = rep.Read(ctx, obs.URI())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRemoveObsoleteDryRun(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "jcmts20090110_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000123"},
	}}
	s, rep := newTestSession(t, Config{DryRun: true}, fake)
	ctx := context.Background()

	obs := &caom.Observation{Collection: "JCMT", ObservationID: "jcmts20090110_850um_nit", Algorithm: "night"}
	obs.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	require.NoError(t, rep.Write(ctx, obs))

	require.NoError(t, s.noteRunID(ctx, "jac-000000123"))
	obsRemoved, planesRemoved, err := s.removeObsolete(ctx)
	require.NoError(t, err)

	// Dry runs report what would go without touching the archive.
	assert.Equal(t, 1, obsRemoved)
	assert.Zero(t, planesRemoved)
	_, err = rep.Read(ctx, obs.URI())
	assert.NoError(t, err)
}

func TestRemoveObsoleteSkipsUntouchedEntries(t *testing.T) {
	// An observation whose lineage entry has no matching planes came up
	// only as a sibling; nothing is read or removed for it.
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000999"},
		{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
			ProductID: "cube-850um", RunID: "jac-000000123"},
	}}
	s, _ := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	stageUnrelatedObservation(s)
	require.NoError(t, s.noteRunID(ctx, "jac-000000999"))
	// Flip the only matching flag off to model the batch rewriting it.
	uri := caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit")
	s.removePlan[uri]["reduced-850um"] = false

	obsRemoved, planesRemoved, err := s.removeObsolete(ctx)
	require.NoError(t, err)
	assert.Zero(t, obsRemoved)
	assert.Zero(t, planesRemoved)
	assert.Empty(t, s.removePlan)
}
