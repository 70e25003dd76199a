// Package caom defines the subset of the CAOM-2 observation data model that
// the ingestion engine reads, builds, and rewrites: observation and plane
// identifiers plus the observation record itself.
//
// The full CAOM-2 model is much larger; only the fields the JCMT pipelines
// populate are represented here. The XML form produced by Marshal is the
// archive's storage format and round-trips through Unmarshal.
package caom

import (
	"fmt"
	"regexp"
)

// URI forms. CAOM identifies entities with caom: URIs; none of the three
// components may contain whitespace or '/'.
var (
	observationURIPattern = regexp.MustCompile(`^caom:([^\s/]+)/([^\s/]+)$`)
	planeURIPattern       = regexp.MustCompile(`^caom:([^\s/]+)/([^\s/]+)/([^\s/]+)$`)
)

// ObservationURI identifies an observation by (collection, observationID).
// It is a comparable value type and is used directly as a map key.
type ObservationURI struct {
	Collection    string
	ObservationID string
}

// NewObservationURI builds an ObservationURI from its parts.
func NewObservationURI(collection, observationID string) ObservationURI {
	return ObservationURI{Collection: collection, ObservationID: observationID}
}

// ParseObservationURI parses "caom:<collection>/<observationID>".
func ParseObservationURI(s string) (ObservationURI, error) {
	m := observationURIPattern.FindStringSubmatch(s)
	if m == nil {
		return ObservationURI{}, fmt.Errorf("malformed observation URI %q", s)
	}
	return ObservationURI{Collection: m[1], ObservationID: m[2]}, nil
}

// String renders the caom: form.
func (u ObservationURI) String() string {
	return "caom:" + u.Collection + "/" + u.ObservationID
}

// Plane returns the PlaneURI for productID within this observation.
func (u ObservationURI) Plane(productID string) PlaneURI {
	return PlaneURI{Collection: u.Collection, ObservationID: u.ObservationID, ProductID: productID}
}

// PlaneURI identifies a plane by (collection, observationID, productID).
type PlaneURI struct {
	Collection    string
	ObservationID string
	ProductID     string
}

// NewPlaneURI builds a PlaneURI from its parts.
func NewPlaneURI(collection, observationID, productID string) PlaneURI {
	return PlaneURI{Collection: collection, ObservationID: observationID, ProductID: productID}
}

// ParsePlaneURI parses "caom:<collection>/<observationID>/<productID>".
func ParsePlaneURI(s string) (PlaneURI, error) {
	m := planeURIPattern.FindStringSubmatch(s)
	if m == nil {
		return PlaneURI{}, fmt.Errorf("malformed plane URI %q", s)
	}
	return PlaneURI{Collection: m[1], ObservationID: m[2], ProductID: m[3]}, nil
}

// String renders the caom: form.
func (u PlaneURI) String() string {
	return "caom:" + u.Collection + "/" + u.ObservationID + "/" + u.ProductID
}

// Observation returns the URI of the observation containing this plane.
func (u PlaneURI) Observation() ObservationURI {
	return ObservationURI{Collection: u.Collection, ObservationID: u.ObservationID}
}
