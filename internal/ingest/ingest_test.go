package ingest

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsaops/jsaingest/internal/catalog"
	"github.com/jsaops/jsaingest/internal/catalog/catalogtest"
	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/repository"
	"github.com/jsaops/jsaingest/internal/repository/fsrepo"
)

// newTestSession builds a session over the fake catalog, storing
// observation records under a test-scoped directory.
func newTestSession(t *testing.T, cfg Config, cat catalog.Querier) (*Session, repository.Repository) {
	t.Helper()
	if cfg.Collection == "" {
		cfg.Collection = "JCMT"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	rep, err := fsrepo.New(t.TempDir())
	require.NoError(t, err)
	s, err := New(cfg, cat, rep)
	require.NoError(t, err)
	return s, rep
}

// scubaRawPlane is the archived raw plane of the SCUBA-2 exposure most
// tests member against. Its artifact file_id matches the PRV1 header of
// reducedHeader.
func scubaRawPlane() catalogtest.Plane {
	return catalogtest.Plane{
		Collection:    "JCMT",
		ObservationID: "scuba2_22_20100311T054059",
		ProductID:     "raw-850um",
		DateObs:       55266.22,
		DateEnd:       55266.26,
		Release:       "2011-03-11",
		ArtifactURIs:  []string{"ad:JCMT/s8a20100311_00022_0001.sdf.gz"},
	}
}

// acsisRawPlane is the archived raw plane of a HARP/ACSIS exposure.
// Its date falls after the raw-data compression cutover, so the
// artifact file_id has no .gz suffix.
func acsisRawPlane() catalogtest.Plane {
	return catalogtest.Plane{
		Collection:    "JCMT",
		ObservationID: "acsis_00026_20150403T065049",
		ProductID:     "raw-345796MHz-250MHzx4096-1",
		DateObs:       57115.2847,
		DateEnd:       57115.3013,
		Release:       "2016-04-03",
		ArtifactURIs:  []string{"ad:JCMT/a20150403_00026_01_0001.sdf"},
	}
}

// reducedHeader is a complete, valid header for a nightly reduced
// SCUBA-2 map whose single member is scubaRawPlane's exposure.
func reducedHeader() fitsheader.Header {
	return fitsheader.Header{
		"BITPIX":   int64(-32),
		"CHECKSUM": "hcHjjc9ghcEghc9g",
		"DATASUM":  "2132662267",
		"INSTREAM": "JCMT",
		"ASN_TYPE": "night",
		"ASN_ID":   "jcmts20100311_850um_nit",
		"OBS_TYPE": "science",
		"SAM_MODE": "scan",
		"INSTRUME": "SCUBA-2",
		"BACKEND":  "SCUBA-2",
		"TELESCOP": "JCMT",
		"OBJECT":   "OMC-1",
		"STANDARD": false,
		"OBSRA":    83.81,
		"OBSDEC":   -5.37,
		"OBSCNT":   int64(1),
		"OBS1":     "scuba2_00022_20100311T054059_850",
		"PROJECT":  "M10AC05",
		"PI":       "B. Observer",
		"TITLE":    "Dense cores in Orion",
		"NAXIS":    int64(3),
		"NAXIS1":   int64(300),
		"NAXIS2":   int64(300),
		"NAXIS3":   int64(1),
		"PRODUCT":  "reduced",
		"FILTER":   "850",
		"RECIPE":   "REDUCE_SCAN",
		"PROCVERS": "2f3b6e0",
		"PRODUCER": "JSA",
		"DPRCINST": "jac-123",
		"DPDATE":   "2014-07-01T12:00:00",
		"PRVCNT":   int64(1),
		"PRV1":     "s8a20100311_00022_0001.sdf",
	}
}

// reducedFile pairs reducedHeader with the path the pipeline writes it
// to; the derived file_id is jcmts20100311_00022_850_reduced001_nit_000.
func reducedFile() fitsheader.File {
	return fitsheader.File{
		Path:   "/indir/jcmts20100311_00022_850_reduced001_nit_000.fits",
		Header: reducedHeader(),
	}
}

// acsisObsHeader is a complete, valid header for a single-exposure
// HARP/ACSIS reduced cube over acsisRawPlane's exposure.
func acsisObsHeader() fitsheader.Header {
	return fitsheader.Header{
		"BITPIX":   int64(-32),
		"CHECKSUM": "acHjjc9ghcEghc9g",
		"DATASUM":  "1032662267",
		"INSTREAM": "JCMT",
		"ASN_TYPE": "obs",
		"OBSID":    "acsis_00026_20150403T065049",
		"DATE-OBS": "2015-04-03T06:50:49",
		"OBS_TYPE": "science",
		"SAM_MODE": "raster",
		"INSTRUME": "HARP",
		"BACKEND":  "ACSIS",
		"OBS_SB":   "USB",
		"SB_MODE":  "SSB",
		"TELESCOP": "JCMT",
		"OBJECT":   "W51",
		"OBSRA":    290.93,
		"OBSDEC":   14.51,
		"ZSOURCE":  0.00019,
		"OBSCNT":   int64(1),
		"OBS1":     "acsis_00026_20150403T065049_1",
		"SEEINGST": 0.8,
		"HUMSTART": 35.0,
		"ELSTART":  55.0,
		"TAU225ST": 0.08,
		"ATSTART":  2.5,
		"NAXIS":    int64(3),
		"NAXIS1":   int64(130),
		"NAXIS2":   int64(110),
		"NAXIS3":   int64(4096),
		"PRODUCT":  "reduced",
		"RESTFRQ":  3.45795990e11,
		"BWMODE":   "250MHzx4096",
		"SUBSYSNR": "1",
		"MOLECULE": "CO",
		"TRANSITI": "3 - 2",
		"RECIPE":   "REDUCE_SCIENCE_GRADIENT",
		"PROCVERS": "4a91c22",
		"PRODUCER": "JSA",
		"DPRCINST": "0x2a",
		"DPDATE":   "2015-04-10T03:21:00",
		"PRVCNT":   int64(1),
		"PRV1":     "a20150403_00026_01_0001.sdf",
	}
}

func acsisObsFile() fitsheader.File {
	return fitsheader.File{
		Path:   "/indir/jcmth20150403_00026_01_reduced001_obs_000.fits",
		Header: acsisObsHeader(),
	}
}
