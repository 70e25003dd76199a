package fsrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
)

func testObservation(obsid string) *caom.Observation {
	obs := &caom.Observation{
		Collection:    "JCMT",
		ObservationID: obsid,
		Algorithm:     caom.AlgorithmExposure,
	}
	obs.SetPlane(&caom.Plane{ProductID: "raw-850um"})
	return obs
}

func TestWriteReadRemove(t *testing.T) {
	ctx := context.Background()
	repo, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	obs := testObservation("scuba2_00022_20150321T065233")
	if err := repo.Write(ctx, obs); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := repo.Read(ctx, obs.URI())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ObservationID != obs.ObservationID || got.Collection != obs.Collection {
		t.Errorf("read back %s/%s, want %s", got.Collection, got.ObservationID, obs.URI())
	}
	if got.Plane("raw-850um") == nil {
		t.Error("plane raw-850um lost in round trip")
	}

	if err := repo.Remove(ctx, obs.URI()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := repo.Read(ctx, obs.URI()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Read after Remove = %v, want ErrNotFound", err)
	}
}

func TestReadMissing(t *testing.T) {
	repo, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	uri := caom.NewObservationURI("JCMT", "nope")
	if _, err := repo.Read(context.Background(), uri); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Read = %v, want ErrNotFound", err)
	}
}

func TestRemoveMissing(t *testing.T) {
	repo, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	uri := caom.NewObservationURI("JCMT", "nope")
	if err := repo.Remove(context.Background(), uri); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Remove = %v, want ErrNotFound", err)
	}
}

func TestWriteReplaces(t *testing.T) {
	ctx := context.Background()
	repo, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	obs := testObservation("obs1")
	if err := repo.Write(ctx, obs); err != nil {
		t.Fatal(err)
	}
	obs.SetPlane(&caom.Plane{ProductID: "reduced-850um"})
	if err := repo.Write(ctx, obs); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Read(ctx, obs.URI())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Planes) != 2 {
		t.Errorf("got %d planes after rewrite, want 2", len(got.Planes))
	}
}
