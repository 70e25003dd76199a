// Package repository defines read/write/remove access to the archive's
// serialized CAOM-2 observation records. The live archive speaks the
// repository web service (httprepo); tests and offline runs use a
// directory of XML files (fsrepo).
package repository

import (
	"context"
	"errors"

	"github.com/jsaops/jsaingest/internal/caom"
)

// ErrNotFound is returned by Read and Remove when the archive holds no
// record for the observation.
var ErrNotFound = errors.New("observation not found")

// Repository stores one serialized observation record per ObservationURI.
// Write replaces any existing record; Write and Remove are idempotent so
// the caller may retry them freely.
type Repository interface {
	Read(ctx context.Context, uri caom.ObservationURI) (*caom.Observation, error)
	Write(ctx context.Context, obs *caom.Observation) error
	Remove(ctx context.Context, uri caom.ObservationURI) error
}
