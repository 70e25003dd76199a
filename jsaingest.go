// Package jsaingest provides a minimal public API for working with the
// CAOM-2 observation records that jsaingest reads and writes.
//
// Most consumers should query the archive services directly. This package
// exports only the essential types and functions needed by Go tools that
// want to parse or assemble observation records programmatically; the
// ingestion engine itself lives in the jsaingest command.
package jsaingest

import (
	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/repository"
	"github.com/jsaops/jsaingest/internal/repository/fsrepo"
)

// Core types for working with observation records
type (
	ObservationURI = caom.ObservationURI
	PlaneURI       = caom.PlaneURI
	Observation    = caom.Observation
	Plane          = caom.Plane
	Artifact       = caom.Artifact
)

// Intent constants
const (
	IntentScience     = caom.IntentScience
	IntentCalibration = caom.IntentCalibration
)

// Calibration levels
const (
	RawInstrumental = caom.RawInstrumental
	RawStandard     = caom.RawStandard
	Calibrated      = caom.Calibrated
	Product         = caom.Product
)

// URI constructors and parsers
var (
	NewObservationURI   = caom.NewObservationURI
	NewPlaneURI         = caom.NewPlaneURI
	ParseObservationURI = caom.ParseObservationURI
	ParsePlaneURI       = caom.ParsePlaneURI
)

// Marshal renders an observation record in the archive's XML form.
func Marshal(o *Observation) ([]byte, error) { return caom.Marshal(o) }

// Unmarshal parses an observation record from the archive's XML form.
func Unmarshal(data []byte) (*Observation, error) { return caom.Unmarshal(data) }

// Repository is the minimal interface for reading and writing stored
// observation records.
type Repository = repository.Repository

// ErrNotFound reports an observation absent from a repository.
var ErrNotFound = repository.ErrNotFound

// NewFileRepository opens a filesystem-backed observation repository
// rooted at dir, one XML file per observation. Tools use this to inspect
// the output of dry runs without an archive service.
func NewFileRepository(dir string) (Repository, error) {
	return fsrepo.New(dir)
}
