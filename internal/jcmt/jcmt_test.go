package jcmt

import (
	"testing"

	"github.com/jsaops/jsaingest/internal/caom"
)

func TestNormalizeBackend(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ACSIS", "ACSIS"},
		{" acsis ", "ACSIS"},
		{"AOSC", "AOS-C"},
		{"aosc", "AOS-C"},
		{"AOS-C", "AOS-C"},
		{"SCUBA-2", "SCUBA-2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeBackend(tt.in); got != tt.want {
			t.Errorf("NormalizeBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIntent(t *testing.T) {
	tests := []struct {
		obsType, backend string
		want             caom.Intent
	}{
		{"science", "ACSIS", caom.IntentScience},
		{"science", "SCUBA-2", caom.IntentScience},
		{"pointing", "SCUBA-2", caom.IntentScience},
		{"pointing", "ACSIS", caom.IntentCalibration},
		{"focus", "SCUBA-2", caom.IntentCalibration},
		{"skydip", "DAS", caom.IntentCalibration},
		{"Science", "acsis", caom.IntentScience},
	}
	for _, tt := range tests {
		if got := Intent(tt.obsType, tt.backend); got != tt.want {
			t.Errorf("Intent(%q, %q) = %q, want %q", tt.obsType, tt.backend, got, tt.want)
		}
	}
}

func TestObsType(t *testing.T) {
	tests := []struct {
		obsType, samMode string
		want             string
	}{
		{"science", "raster", "scan"},
		{"science", "scan", "scan"},
		{"science", "jiggle", "jiggle"},
		{"science", "grid", "grid"},
		{"pointing", "jiggle", "pointing"},
		{"focus", "scan", "focus"},
		{"Science", "Raster", "scan"},
	}
	for _, tt := range tests {
		if got := ObsType(tt.obsType, tt.samMode); got != tt.want {
			t.Errorf("ObsType(%q, %q) = %q, want %q", tt.obsType, tt.samMode, got, tt.want)
		}
	}
}

func TestTargetName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"jupiter", "JUPITER"},
		{" omc  1 ", "OMC 1"},
		{"G34.3\t+0.2", "G34.3 +0.2"},
		{"OMC 1", "OMC 1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TargetName(tt.in); got != tt.want {
			t.Errorf("TargetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
