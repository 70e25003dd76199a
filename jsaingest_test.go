package jsaingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jsaops/jsaingest"
)

func TestURIRoundTrip(t *testing.T) {
	uri := jsaingest.NewPlaneURI("JCMT", "scuba2_00022_20140415T054443", "reduced-850um")
	parsed, err := jsaingest.ParsePlaneURI(uri.String())
	if err != nil {
		t.Fatalf("ParsePlaneURI(%q) failed: %v", uri.String(), err)
	}
	if parsed != uri {
		t.Errorf("round trip changed URI: got %v, want %v", parsed, uri)
	}
}

func TestFileRepository(t *testing.T) {
	repo, err := jsaingest.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}

	ctx := context.Background()
	obs := &jsaingest.Observation{
		Collection:    "JCMT",
		ObservationID: "acsis_00033_20090810T081948",
		Algorithm:     "exposure",
	}
	if err := repo.Write(ctx, obs); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := repo.Read(ctx, obs.URI())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.ObservationID != obs.ObservationID {
		t.Errorf("read back observationID %q, want %q", got.ObservationID, obs.ObservationID)
	}

	if _, err := repo.Read(ctx, jsaingest.NewObservationURI("JCMT", "missing")); !errors.Is(err, jsaingest.ErrNotFound) {
		t.Errorf("Read of missing observation: got %v, want ErrNotFound", err)
	}
}
