package ingest

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/catalog/catalogtest"
	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/repository"
)

// rspFile is the preview spectrum written alongside reducedFile; it
// stages into the same plane.
func rspFile() fitsheader.File {
	h := reducedHeader()
	h["PRODUCT"] = "rsp"
	return fitsheader.File{
		Path:   "/indir/jcmts20100311_00022_850_rsp001_nit_000.fits",
		Header: h,
	}
}

// healpixFile is a legacy coadd tile whose provenance names the file
// reducedFile produces, by file name rather than plane URI.
func healpixFile() fitsheader.File {
	return fitsheader.File{
		Path: "/indir/jcmts850um_healpix002434_pub_000.fits",
		Header: fitsheader.Header{
			"BITPIX":   int64(-32),
			"CHECKSUM": "tcHjjc9gtcEgtc9g",
			"DATASUM":  "4132662267",
			"INSTREAM": "JCMT",
			"ASN_TYPE": "public",
			"ASN_ID":   "jcmts850um_healpix002434",
			"OBS_TYPE": "science",
			"SAM_MODE": "scan",
			"INSTRUME": "SCUBA-2",
			"BACKEND":  "SCUBA-2",
			"TELESCOP": "JCMT",
			"OBJECT":   "TILE 2434",
			"NAXIS":    int64(3),
			"NAXIS1":   int64(512),
			"NAXIS2":   int64(512),
			"NAXIS3":   int64(1),
			"PRODUCT":  "healpix",
			"FILTER":   "850",
			"RECIPE":   "REDUCE_SCAN_JSA_PUBLIC",
			"PROCVERS": "2f3b6e0",
			"PRODUCER": "JSA",
			"DPRCINST": "jac-200",
			"DPDATE":   "2014-07-02T08:30:00",
			"PRVCNT":   int64(1),
			"PRV1":     "jcmts20100311_00022_850_reduced001_nit_000.fits",
		},
	}
}

func TestRunBatch(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{scubaRawPlane()}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	res, err := s.Run(ctx, []fitsheader.File{rspFile(), reducedFile()})
	require.NoError(t, err)

	assert.Len(t, res.Files, 2)
	assert.Zero(t, res.FilesWithErrors)
	assert.Zero(t, res.FilesWithWarnings)
	assert.Equal(t, 1, res.ObservationsStored)
	assert.Zero(t, res.ObservationsRemoved)
	assert.Zero(t, res.PlanesRemoved)
	assert.Zero(t, res.UnresolvedInputs)
	assert.Equal(t, 55266.22, res.EarliestMJD)
	assert.Equal(t, "scuba2_22_20100311T054059", res.EarliestObsID)

	got, err := rep.Read(ctx, caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit"))
	require.NoError(t, err)
	assert.Equal(t, "night", got.Algorithm)
	assert.Equal(t, "scan", got.Type)
	assert.Equal(t, caom.IntentScience, got.Intent)
	require.NotNil(t, got.Telescope)
	assert.Equal(t, "JCMT", got.Telescope.Name)
	assert.Equal(t, []caom.ObservationURI{
		caom.NewObservationURI("JCMT", "scuba2_22_20100311T054059"),
	}, got.MemberURIs())

	// Both files landed on the one reduced plane.
	require.Equal(t, []string{"reduced-850um"}, got.ProductIDs())
	pl := got.Plane("reduced-850um")
	assert.Equal(t, caom.Calibrated, pl.CalibrationLevel)
	assert.Equal(t, caom.TypeImage, pl.DataProductType)
	assert.Equal(t, "SCUBA-2-850um", pl.Bandpass)
	require.NotNil(t, pl.MetaRelease)
	assert.True(t, pl.MetaRelease.Equal(time.Date(2011, 3, 11, 0, 0, 0, 0, time.UTC)))

	require.Len(t, pl.Artifacts, 2)
	assert.Equal(t, "ad:JCMT/jcmts20100311_00022_850_reduced001_nit_000", pl.Artifacts[0].URI)
	assert.Equal(t, "ad:JCMT/jcmts20100311_00022_850_rsp001_nit_000", pl.Artifacts[1].URI)
	assert.Equal(t, []caom.Part{
		{Name: "0", ProductType: caom.PartPreview},
		{Name: "1", ProductType: caom.PartNoise},
	}, pl.Artifacts[1].Parts)

	require.NotNil(t, pl.Provenance)
	assert.Equal(t, "REDUCE_SCAN", pl.Provenance.Name)
	assert.Equal(t, "jac-000000123", pl.Provenance.RunID)
	assert.Equal(t, []string{"caom:JCMT/scuba2_22_20100311T054059/raw-850um"}, pl.Provenance.Inputs)

	require.NotNil(t, pl.TimeBounds)
	assert.Equal(t, 55266.22, pl.TimeBounds.Lower)
	assert.Equal(t, 55266.26, pl.TimeBounds.Upper)
	require.Len(t, pl.TimeBounds.Samples, 1)
}

func TestRunSameBatchProvenance(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{scubaRawPlane()}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	res, err := s.Run(ctx, []fitsheader.File{healpixFile(), reducedFile()})
	require.NoError(t, err)

	assert.Zero(t, res.FilesWithErrors)
	assert.Zero(t, res.UnresolvedInputs)
	assert.Equal(t, 2, res.ObservationsStored)

	// The tile's provenance file was produced earlier in this batch, so
	// it resolved from the staging cache without a catalog lookup.
	assert.Equal(t, 0, fake.CallCount("ArtifactsForFileID"))

	got, err := rep.Read(ctx, caom.NewObservationURI("JCMT", "jcmts850um_healpix002434"))
	require.NoError(t, err)
	pl := got.Plane("healpix-850um")
	require.NotNil(t, pl)
	assert.Equal(t, caom.Calibrated, pl.CalibrationLevel)
	require.NotNil(t, pl.Provenance)
	assert.Equal(t, "JCMT_LEGACY_PIPELINE", pl.Provenance.Project)
	assert.Equal(t, "jac-000000200", pl.Provenance.RunID)
	assert.Equal(t, []string{"caom:JCMT/jcmts20100311_850um_nit/reduced-850um"}, pl.Provenance.Inputs)
	// Legacy tiles carry no release dates of their own.
	assert.Nil(t, pl.MetaRelease)
	assert.Nil(t, pl.DataRelease)
}

func TestRunReplacesObsoletePlanes(t *testing.T) {
	// The archive holds an earlier 450um plane from the same recipe
	// instance; re-ingesting only the 850um map obsoletes it.
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		scubaRawPlane(),
		{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000123"},
		{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
			ProductID: "reduced-450um", RunID: "jac-000000123"},
	}}
	s, rep := newTestSession(t, Config{Replace: true}, fake)
	ctx := context.Background()

	old := &caom.Observation{Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit", Algorithm: "night"}
	old.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	old.SetPlane(&caom.Plane{ProductID: "reduced-450um"})
	require.NoError(t, rep.Write(ctx, old))

	res, err := s.Run(ctx, []fitsheader.File{reducedFile()})
	require.NoError(t, err)

	assert.Zero(t, res.FilesWithErrors)
	assert.Equal(t, 1, res.ObservationsStored)
	assert.Equal(t, 1, res.PlanesRemoved)
	assert.Zero(t, res.ObservationsRemoved)

	got, err := rep.Read(ctx, old.URI())
	require.NoError(t, err)
	assert.Equal(t, []string{"reduced-850um"}, got.ProductIDs())
	// The surviving plane is the fresh one, not the bare record that
	// was there before.
	require.NotNil(t, got.Plane("reduced-850um").Provenance)
}

func TestRunRemovesUntouchedObservation(t *testing.T) {
	// A neighboring observation holds only planes from this batch's
	// recipe instance; since the batch never rewrote it, the whole
	// record is obsolete.
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		scubaRawPlane(),
		{Collection: "JCMT", ObservationID: "jcmts20100312_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000123"},
	}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	stale := &caom.Observation{Collection: "JCMT", ObservationID: "jcmts20100312_850um_nit", Algorithm: "night"}
	stale.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	require.NoError(t, rep.Write(ctx, stale))

	res, err := s.Run(ctx, []fitsheader.File{reducedFile()})
	require.NoError(t, err)

	assert.Equal(t, 1, res.ObservationsStored)
	assert.Equal(t, 1, res.ObservationsRemoved)

	_, err = rep.Read(ctx, stale.URI())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = rep.Read(ctx, caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit"))
	assert.NoError(t, err)
}

func TestRunReingestIdempotent(t *testing.T) {
	// Re-ingesting an unchanged file under the same recipe instance
	// stores the identical record and removes nothing: the plane the
	// lineage flags as the instance's output is the one being rewritten.
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{scubaRawPlane()}}
	s1, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	res1, err := s1.Run(ctx, []fitsheader.File{reducedFile()})
	require.NoError(t, err)
	require.False(t, res1.HasErrors())
	uri := caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit")
	first, err := rep.Read(ctx, uri)
	require.NoError(t, err)

	// The catalog now reflects the first ingestion.
	fake.Planes = append(fake.Planes, catalogtest.Plane{
		Collection: "JCMT", ObservationID: "jcmts20100311_850um_nit",
		ProductID: "reduced-850um", RunID: "jac-000000123",
	})

	s2, err := New(Config{Collection: "JCMT", Replace: true,
		Logger: slog.New(slog.DiscardHandler)}, fake, rep)
	require.NoError(t, err)
	res2, err := s2.Run(ctx, []fitsheader.File{reducedFile()})
	require.NoError(t, err)

	assert.False(t, res2.HasErrors())
	assert.Zero(t, res2.PlanesRemoved)
	assert.Zero(t, res2.ObservationsRemoved)

	second, err := rep.Read(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, first.ProductIDs(), second.ProductIDs())
	assert.Equal(t, first.Plane("reduced-850um").Provenance, second.Plane("reduced-850um").Provenance)
}

func TestRunDryRun(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{
		scubaRawPlane(),
		{Collection: "JCMT", ObservationID: "jcmts20100312_850um_nit",
			ProductID: "reduced-850um", RunID: "jac-000000123"},
	}}
	s, rep := newTestSession(t, Config{DryRun: true}, fake)
	ctx := context.Background()

	stale := &caom.Observation{Collection: "JCMT", ObservationID: "jcmts20100312_850um_nit", Algorithm: "night"}
	stale.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	require.NoError(t, rep.Write(ctx, stale))

	res, err := s.Run(ctx, []fitsheader.File{reducedFile()})
	require.NoError(t, err)

	// The counts describe what a real run would have done.
	assert.Equal(t, 1, res.ObservationsStored)
	assert.Equal(t, 1, res.ObservationsRemoved)

	// Nothing was written and nothing was removed.
	_, err = rep.Read(ctx, caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = rep.Read(ctx, stale.URI())
	assert.NoError(t, err)
}

func TestRunErrorFileContributesNothing(t *testing.T) {
	fake := &catalogtest.Fake{Planes: []catalogtest.Plane{scubaRawPlane(), acsisRawPlane()}}
	s, rep := newTestSession(t, Config{}, fake)
	ctx := context.Background()

	bad := acsisObsFile()
	delete(bad.Header, "DPRCINST")

	res, err := s.Run(ctx, []fitsheader.File{reducedFile(), bad})
	require.NoError(t, err)

	assert.Equal(t, 1, res.FilesWithErrors)
	assert.True(t, res.HasErrors())
	assert.Equal(t, 1, res.ObservationsStored)

	require.Len(t, res.Files, 2)
	var badResult FileResult
	for _, fr := range res.Files {
		if fr.Name == "jcmth20150403_00026_01_reduced001_obs_000.fits" {
			badResult = fr
		}
	}
	assert.Equal(t, []string{"mandatory keyword DPRCINST is missing"}, badResult.Errors)

	_, err = rep.Read(ctx, caom.NewObservationURI("JCMT", "acsis_00026_20150403T065049"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = rep.Read(ctx, caom.NewObservationURI("JCMT", "jcmts20100311_850um_nit"))
	assert.NoError(t, err)
}
