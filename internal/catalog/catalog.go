// Package catalog defines the read-only view of the archive's CAOM-2
// metadata and the observatory databases that the ingestion engine
// queries to resolve membership, provenance, and run lineage. The live
// implementation backed by the JSA database mirror lives in caomdb; tests
// use the in-memory fake in catalogtest.
package catalog

import (
	"context"
	"time"

	"github.com/jsaops/jsaingest/internal/jcmt"
)

// MemberPlane is one row of the member-resolution queries: a plane of a
// candidate member observation paired with one of its artifacts. Rows
// arrive flat, repeating the plane columns once per artifact, exactly as
// the underlying join produces them. Zero DateObs/DateEnd or a zero
// Release mean the archived plane has no usable time information and
// callers skip the row.
type MemberPlane struct {
	ObservationID string
	ProductID     string
	DateObs       float64 // MJD, start of the plane's time bounds
	DateEnd       float64 // MJD, end of the plane's time bounds
	Release       time.Time
	ArtifactURI   string
}

// ArtifactPlane identifies a plane that contains an artifact matching a
// file ID lookup.
type ArtifactPlane struct {
	Collection    string
	ObservationID string
	ProductID     string
	ArtifactURI   string
}

// LineagePlane is one archived plane returned by a run-lineage query,
// with the provenance runID that produced it.
type LineagePlane struct {
	Collection    string
	ObservationID string
	ProductID     string
	RunID         string
}

// Proposal carries the investigator metadata recorded for a JCMT project.
// Either field may be empty when the source databases have no record.
type Proposal struct {
	PI    string
	Title string
}

// Querier is the query surface the ingestion engine needs. Every method
// is a synchronous lookup that may legitimately return no rows; absence
// of rows is not an error.
type Querier interface {
	// ObservationPlanes returns the planes and artifacts of one known
	// observation, one row per plane-artifact pair.
	ObservationPlanes(ctx context.Context, collection, observationID string) ([]MemberPlane, error)

	// PlanesLikeObservationID is ObservationPlanes for an observationID
	// pattern ('%' wildcards), used to resolve obsid_subsysnr member
	// tokens whose observation number may be padded differently. Rows
	// span every matching observation in every collection.
	PlanesLikeObservationID(ctx context.Context, pattern string) ([]MemberPlane, error)

	// CollectionsWithObservationID lists the distinct collections that
	// already hold an observation with this observationID.
	CollectionsWithObservationID(ctx context.Context, observationID string) ([]string, error)

	// ArtifactsForFileID finds every plane holding an artifact whose URI
	// ends in "/<fileID>", across all collections; the caller filters
	// collections it trusts.
	ArtifactsForFileID(ctx context.Context, fileID string) ([]ArtifactPlane, error)

	// RunLineage returns every plane of every observation that has at
	// least one plane with the given provenance runID. Sibling planes
	// produced by other runs are included so the caller can distinguish
	// current from stale output.
	RunLineage(ctx context.Context, runID string) ([]LineagePlane, error)

	// HeterodyneSubsystems returns the spectral subsystems recorded at
	// acquisition for a raw heterodyne observation, with hybrid-mode
	// grouping already applied.
	HeterodyneSubsystems(ctx context.Context, backend, observationID string) ([]jcmt.Subsystem, error)

	// ProposalInfo returns the PI and title for a JCMT project. Missing
	// information yields empty fields, not an error.
	ProposalInfo(ctx context.Context, projectID string) (Proposal, error)
}
