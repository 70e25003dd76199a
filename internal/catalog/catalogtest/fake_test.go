package catalogtest

import (
	"context"
	"testing"
)

func TestLikePattern(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"scuba2%20150321T065233", "scuba2_00022_20150321T065233", true},
		{"scuba2%20150321T065233", "scuba2_00022_20150321T065234", false},
		{"acsis%20150321T070000", "acsis_26_20150321T070000", true},
		{"scuba2%", "acsis_00026_20150321T070000", false},
		{"a_b", "axb", true},
		{"a.b", "axb", false},
	}
	for _, tt := range tests {
		if got := likePattern(tt.pattern).MatchString(tt.s); got != tt.want {
			t.Errorf("likePattern(%q).MatchString(%q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func TestArtifactsForFileIDReturnsWholePlane(t *testing.T) {
	f := &Fake{Planes: []Plane{
		{
			Collection:    "JCMT",
			ObservationID: "obs1",
			ProductID:     "reduced-850um",
			ArtifactURIs: []string{
				"ad:JCMT/file_a",
				"ad:JCMT/file_b",
			},
		},
		{
			Collection:    "JCMT",
			ObservationID: "obs2",
			ProductID:     "reduced-450um",
			ArtifactURIs:  []string{"ad:JCMT/file_c"},
		},
	}}
	artifacts, err := f.ArtifactsForFileID(context.Background(), "file_a")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("got %d artifacts, want both artifacts of the matching plane", len(artifacts))
	}
	for _, a := range artifacts {
		if a.ProductID != "reduced-850um" {
			t.Errorf("artifact %s from plane %s, want reduced-850um only", a.ArtifactURI, a.ProductID)
		}
	}
}
