package jcmt

import (
	"strings"

	"github.com/jsaops/jsaingest/internal/caom"
)

// Intent classifies an observation as science or calibration from its
// OBS_TYPE. Everything except science observations is calibration, with
// one exception: SCUBA-2 pointings are full maps of a calibrator and are
// useful as science data.
func Intent(obsType, backend string) caom.Intent {
	ot := strings.ToLower(strings.TrimSpace(obsType))
	if ot == "science" {
		return caom.IntentScience
	}
	if ot == "pointing" && NormalizeBackend(backend) == "SCUBA-2" {
		return caom.IntentScience
	}
	return caom.IntentCalibration
}

// ObsType folds the sampling mode into the observation type for science
// observations, so a raster science observation reads "scan" and a jiggle
// science observation reads "jiggle". Calibration observation types pass
// through unchanged.
func ObsType(obsType, samMode string) string {
	ot := strings.ToLower(strings.TrimSpace(obsType))
	if ot != "science" {
		return ot
	}
	sam := strings.ToLower(strings.TrimSpace(samMode))
	if sam == "raster" {
		return "scan"
	}
	return sam
}
