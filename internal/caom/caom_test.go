package caom

import (
	"strings"
	"testing"
	"time"
)

func TestParseObservationURI(t *testing.T) {
	tests := []struct {
		in      string
		want    ObservationURI
		wantErr bool
	}{
		{"caom:JCMT/scuba2_00018_20120703T075008", ObservationURI{"JCMT", "scuba2_00018_20120703T075008"}, false},
		{"caom:JCMTLS/obs-1", ObservationURI{"JCMTLS", "obs-1"}, false},
		{"caom:JCMT/a/b", ObservationURI{}, true},
		{"JCMT/obs-1", ObservationURI{}, true},
		{"caom:JCMT/", ObservationURI{}, true},
		{"caom:JCMT/has space", ObservationURI{}, true},
	}
	for _, tt := range tests {
		got, err := ParseObservationURI(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseObservationURI(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseObservationURI(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPlaneURIRoundTrip(t *testing.T) {
	u := NewPlaneURI("JCMT", "acsis_00035_20130512T102345", "raw-450um")
	s := u.String()
	if s != "caom:JCMT/acsis_00035_20130512T102345/raw-450um" {
		t.Fatalf("String() = %q", s)
	}
	back, err := ParsePlaneURI(s)
	if err != nil {
		t.Fatalf("ParsePlaneURI(%q): %v", s, err)
	}
	if back != u {
		t.Errorf("round trip = %+v, want %+v", back, u)
	}
	if back.Observation() != NewObservationURI("JCMT", "acsis_00035_20130512T102345") {
		t.Errorf("Observation() = %+v", back.Observation())
	}
}

func TestObservationPlaneHelpers(t *testing.T) {
	o := &Observation{Collection: "JCMT", ObservationID: "obs-1", Algorithm: AlgorithmExposure}

	o.SetPlane(&Plane{ProductID: "reduced-850um"})
	o.SetPlane(&Plane{ProductID: "cube-850um"})
	o.SetPlane(&Plane{ProductID: "reduced-450um"})

	ids := o.ProductIDs()
	want := []string{"cube-850um", "reduced-450um", "reduced-850um"}
	if len(ids) != len(want) {
		t.Fatalf("ProductIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ProductIDs() = %v, want %v", ids, want)
		}
	}

	// Replacement must not duplicate.
	o.SetPlane(&Plane{ProductID: "cube-850um", DataProductType: TypeCube})
	if len(o.Planes) != 3 {
		t.Fatalf("SetPlane replaced = %d planes, want 3", len(o.Planes))
	}
	if p := o.Plane("cube-850um"); p == nil || p.DataProductType != TypeCube {
		t.Errorf("Plane(cube-850um) = %+v", p)
	}

	if !o.RemovePlane("reduced-450um") {
		t.Error("RemovePlane(reduced-450um) = false, want true")
	}
	if o.RemovePlane("reduced-450um") {
		t.Error("second RemovePlane(reduced-450um) = true, want false")
	}
	if o.Plane("reduced-450um") != nil {
		t.Error("removed plane still present")
	}
}

func TestObservationMembers(t *testing.T) {
	o := &Observation{Collection: "JCMT", ObservationID: "night-1", Algorithm: "night"}
	members := []ObservationURI{
		NewObservationURI("JCMT", "scuba2_00018_20120703T075008"),
		NewObservationURI("JCMT", "scuba2_00019_20120703T081505"),
	}
	o.SetMembers(members)
	if !o.IsComposite() {
		t.Error("IsComposite() = false for algorithm night")
	}
	got := o.MemberURIs()
	if len(got) != 2 || got[0] != members[0] || got[1] != members[1] {
		t.Errorf("MemberURIs() = %v, want %v", got, members)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	release := time.Date(2013, 7, 1, 0, 0, 0, 0, time.UTC)
	standard := false
	o := &Observation{
		Collection:    "JCMT",
		ObservationID: "scuba2_00018_20120703T075008",
		Algorithm:     AlgorithmExposure,
		Type:          "science",
		Intent:        IntentScience,
		MetaRelease:   &release,
		Target:        &Target{Name: "OMC-1", Type: "object", Standard: &standard},
		Telescope:     &Telescope{Name: "JCMT"},
		Instrument:    &Instrument{Name: "SCUBA-2", Keywords: []string{"POL"}},
	}
	o.SetPlane(&Plane{
		ProductID:        "reduced-850um",
		DataRelease:      &release,
		MetaRelease:      &release,
		DataProductType:  TypeImage,
		CalibrationLevel: Calibrated,
		Provenance: &Provenance{
			Name:   "REDUCE_SCAN",
			RunID:  "jac-000000042",
			Inputs: []string{"caom:JCMT/scuba2_00018_20120703T075008/raw-850um"},
		},
		Artifacts: []*Artifact{{
			URI:         "ad:JCMT/jcmts20120703_00018_850_reduced001",
			ProductType: PartScience,
			Parts:       []Part{{Name: "0", ProductType: PartScience}},
		}},
	})

	data, err := Marshal(o)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), xmlHeaderPrefix) {
		t.Errorf("missing XML header: %q", string(data[:40]))
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.URI() != o.URI() {
		t.Errorf("URI = %v, want %v", back.URI(), o.URI())
	}
	p := back.Plane("reduced-850um")
	if p == nil {
		t.Fatal("plane lost in round trip")
	}
	if p.CalibrationLevel != Calibrated {
		t.Errorf("CalibrationLevel = %d, want %d", p.CalibrationLevel, Calibrated)
	}
	if p.Provenance == nil || p.Provenance.RunID != "jac-000000042" {
		t.Errorf("Provenance = %+v", p.Provenance)
	}
	if len(p.Provenance.Inputs) != 1 {
		t.Errorf("Inputs = %v", p.Provenance.Inputs)
	}
	if p.MetaRelease == nil || !p.MetaRelease.Equal(release) {
		t.Errorf("MetaRelease = %v, want %v", p.MetaRelease, release)
	}
	if back.Target == nil || back.Target.Standard == nil || *back.Target.Standard {
		t.Errorf("Target = %+v", back.Target)
	}
}

const xmlHeaderPrefix = "<?xml"

func TestValidate(t *testing.T) {
	o := &Observation{Collection: "JCMT", ObservationID: "obs-1", Algorithm: AlgorithmExposure}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	o.Algorithm = ""
	if err := o.Validate(); err == nil {
		t.Error("Validate() = nil for missing algorithm")
	}
	o = &Observation{ObservationID: "obs-1", Algorithm: AlgorithmExposure}
	if err := o.Validate(); err == nil {
		t.Error("Validate() = nil for missing collection")
	}
}
