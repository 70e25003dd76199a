package caomdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jsaops/jsaingest/internal/catalog"
	"github.com/jsaops/jsaingest/internal/jcmt"
)

// memberPlaneColumns are the plane/artifact columns shared by the two
// member-resolution queries.
const memberPlaneColumns = `
    Plane.productID,
    Plane.time_bounds_lower,
    Plane.time_bounds_upper,
    Plane.dataRelease,
    Artifact.uri`

func (s *Store) ObservationPlanes(ctx context.Context, collection, observationID string) ([]catalog.MemberPlane, error) {
	query := fmt.Sprintf(`
SELECT%s
FROM %[2]s.Observation AS Observation
    INNER JOIN %[2]s.Plane AS Plane
        ON Observation.obsID = Plane.obsID
    INNER JOIN %[2]s.Artifact AS Artifact
        ON Plane.planeID = Artifact.planeID
WHERE Observation.collection = ?
  AND Observation.observationID = ?`, memberPlaneColumns, s.caomDB)

	rows, cancel, err := s.queryContext(ctx, query, collection, observationID)
	if err != nil {
		return nil, fmt.Errorf("caomdb: planes of %s/%s: %w", collection, observationID, err)
	}
	defer cancel()
	defer rows.Close()

	var planes []catalog.MemberPlane
	for rows.Next() {
		p := catalog.MemberPlane{ObservationID: observationID}
		var dateObs, dateEnd sql.NullFloat64
		var release sql.NullTime
		if err := rows.Scan(&p.ProductID, &dateObs, &dateEnd, &release, &p.ArtifactURI); err != nil {
			return nil, fmt.Errorf("caomdb: scanning plane row: %w", err)
		}
		p.DateObs = dateObs.Float64
		p.DateEnd = dateEnd.Float64
		p.Release = release.Time
		planes = append(planes, p)
	}
	return planes, rows.Err()
}

func (s *Store) PlanesLikeObservationID(ctx context.Context, pattern string) ([]catalog.MemberPlane, error) {
	query := fmt.Sprintf(`
SELECT
    Observation.observationID,%s
FROM %[2]s.Observation AS Observation
    INNER JOIN %[2]s.Plane AS Plane
        ON Observation.obsID = Plane.obsID
    INNER JOIN %[2]s.Artifact AS Artifact
        ON Plane.planeID = Artifact.planeID
WHERE Observation.observationID LIKE ?`, memberPlaneColumns, s.caomDB)

	rows, cancel, err := s.queryContext(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("caomdb: planes matching observationID %q: %w", pattern, err)
	}
	defer cancel()
	defer rows.Close()

	var planes []catalog.MemberPlane
	for rows.Next() {
		var p catalog.MemberPlane
		var dateObs, dateEnd sql.NullFloat64
		var release sql.NullTime
		if err := rows.Scan(&p.ObservationID, &p.ProductID, &dateObs, &dateEnd, &release, &p.ArtifactURI); err != nil {
			return nil, fmt.Errorf("caomdb: scanning plane row: %w", err)
		}
		p.DateObs = dateObs.Float64
		p.DateEnd = dateEnd.Float64
		p.Release = release.Time
		planes = append(planes, p)
	}
	return planes, rows.Err()
}

func (s *Store) CollectionsWithObservationID(ctx context.Context, observationID string) ([]string, error) {
	query := fmt.Sprintf(`
SELECT DISTINCT Observation.collection
FROM %s.Observation AS Observation
WHERE Observation.observationID = ?`, s.caomDB)

	rows, cancel, err := s.queryContext(ctx, query, observationID)
	if err != nil {
		return nil, fmt.Errorf("caomdb: collections with observationID %q: %w", observationID, err)
	}
	defer cancel()
	defer rows.Close()

	var collections []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("caomdb: scanning collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (s *Store) ArtifactsForFileID(ctx context.Context, fileID string) ([]catalog.ArtifactPlane, error) {
	// The self-join returns every artifact of any plane that holds an
	// artifact matching the file ID, so one hit prefetches the whole
	// plane for the caller's cache.
	query := fmt.Sprintf(`
SELECT
    Observation.collection,
    Observation.observationID,
    Plane.productID,
    Artifact.uri
FROM %[1]s.Observation AS Observation
    INNER JOIN %[1]s.Plane AS Plane
        ON Observation.obsID = Plane.obsID
    INNER JOIN %[1]s.Artifact AS Artifact
        ON Plane.planeID = Artifact.planeID
    INNER JOIN %[1]s.Artifact AS Artifact2
        ON Plane.planeID = Artifact2.planeID
WHERE Artifact2.uri LIKE CONCAT('ad:%%/', ?)`, s.caomDB)

	rows, cancel, err := s.queryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("caomdb: artifacts for file ID %q: %w", fileID, err)
	}
	defer cancel()
	defer rows.Close()

	var artifacts []catalog.ArtifactPlane
	for rows.Next() {
		var a catalog.ArtifactPlane
		if err := rows.Scan(&a.Collection, &a.ObservationID, &a.ProductID, &a.ArtifactURI); err != nil {
			return nil, fmt.Errorf("caomdb: scanning artifact row: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func (s *Store) RunLineage(ctx context.Context, runID string) ([]catalog.LineagePlane, error) {
	// The Plane2 self-join widens the result to every plane of any
	// observation touched by the run, so stale sibling planes are visible
	// alongside the run's own output.
	query := fmt.Sprintf(`
SELECT
    Observation.collection,
    Observation.observationID,
    Plane.productID,
    Plane.provenance_runID
FROM %[1]s.Observation AS Observation
    INNER JOIN %[1]s.Plane AS Plane
        ON Observation.obsID = Plane.obsID
    INNER JOIN %[1]s.Plane AS Plane2
        ON Observation.obsID = Plane2.obsID
WHERE Plane2.provenance_runID = ?
ORDER BY Observation.collection,
         Observation.observationID,
         Plane.productID`, s.caomDB)

	rows, cancel, err := s.queryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("caomdb: lineage of run %q: %w", runID, err)
	}
	defer cancel()
	defer rows.Close()

	var planes []catalog.LineagePlane
	for rows.Next() {
		var p catalog.LineagePlane
		var run sql.NullString
		if err := rows.Scan(&p.Collection, &p.ObservationID, &p.ProductID, &run); err != nil {
			return nil, fmt.Errorf("caomdb: scanning lineage row: %w", err)
		}
		p.RunID = run.String
		planes = append(planes, p)
	}
	return planes, rows.Err()
}

func (s *Store) HeterodyneSubsystems(ctx context.Context, backend, observationID string) ([]jcmt.Subsystem, error) {
	var query string
	switch jcmt.NormalizeBackend(backend) {
	case "ACSIS":
		// Subsystems sharing the tuning are halves of a hybrid subsystem;
		// the lowest subsystem number in the group identifies the
		// spectral window.
		query = fmt.Sprintf(`
SELECT
    a.subsysnr,
    a.restfreq,
    a.bwmode,
    MIN(aa.subsysnr) AS specid,
    COUNT(aa.subsysnr) AS hybrid
FROM %[1]s.ACSIS AS a
    INNER JOIN %[1]s.ACSIS AS aa
        ON a.obsid = aa.obsid
       AND a.restfreq = aa.restfreq
       AND a.iffreq = aa.iffreq
       AND a.ifchansp = aa.ifchansp
WHERE a.obsid = ?
GROUP BY a.subsysnr, a.restfreq, a.bwmode
ORDER BY a.subsysnr`, s.jcmtDB)
	case "DAS", "AOS-C":
		query = fmt.Sprintf(`
SELECT
    a.subsysnr,
    a.restfreq,
    a.bwmode,
    a.specid,
    (SELECT COUNT(*)
       FROM %[1]s.ACSIS AS aa
      WHERE aa.obsid = a.obsid AND aa.specid = a.specid) AS hybrid
FROM %[1]s.ACSIS AS a
WHERE a.obsid = ?
ORDER BY a.subsysnr`, s.jcmtDB)
	default:
		return nil, fmt.Errorf("caomdb: backend %q has no heterodyne subsystems", backend)
	}

	rows, cancel, err := s.queryContext(ctx, query, observationID)
	if err != nil {
		return nil, fmt.Errorf("caomdb: subsystems of %s observation %q: %w", backend, observationID, err)
	}
	defer cancel()
	defer rows.Close()

	var subsystems []jcmt.Subsystem
	for rows.Next() {
		var ss jcmt.Subsystem
		var restfreq sql.NullFloat64
		var bwmode sql.NullString
		if err := rows.Scan(&ss.Number, &restfreq, &bwmode, &ss.SpecID, &ss.HybridCount); err != nil {
			return nil, fmt.Errorf("caomdb: scanning subsystem row: %w", err)
		}
		ss.RestFreqGHz = restfreq.Float64
		ss.BWMode = bwmode.String
		subsystems = append(subsystems, ss)
	}
	return subsystems, rows.Err()
}

func (s *Store) ProposalInfo(ctx context.Context, projectID string) (catalog.Proposal, error) {
	proposal, err := s.ompProposal(ctx, projectID)
	if err != nil {
		return catalog.Proposal{}, err
	}
	if proposal.PI != "" && proposal.Title != "" {
		return proposal, nil
	}
	// Projects predating the OMP may still be named on archived JCMT
	// observations.
	return s.archivedProposal(ctx, projectID, proposal)
}

func (s *Store) ompProposal(ctx context.Context, projectID string) (catalog.Proposal, error) {
	query := fmt.Sprintf(`
SELECT ou.uname, op.title
FROM %[1]s.ompproj AS op
    LEFT JOIN %[1]s.ompuser AS ou
        ON op.pi = ou.userid
WHERE op.projectid = ?`, s.ompDB)

	rows, cancel, err := s.queryContext(ctx, query, projectID)
	if err != nil {
		return catalog.Proposal{}, fmt.Errorf("caomdb: OMP project %q: %w", projectID, err)
	}
	defer cancel()
	defer rows.Close()

	var proposal catalog.Proposal
	if rows.Next() {
		var pi, title sql.NullString
		if err := rows.Scan(&pi, &title); err != nil {
			return catalog.Proposal{}, fmt.Errorf("caomdb: scanning OMP project row: %w", err)
		}
		proposal.PI = pi.String
		proposal.Title = title.String
	}
	return proposal, rows.Err()
}

func (s *Store) archivedProposal(ctx context.Context, projectID string, proposal catalog.Proposal) (catalog.Proposal, error) {
	query := fmt.Sprintf(`
SELECT DISTINCT
    Observation.proposal_pi,
    Observation.proposal_title
FROM %s.Observation AS Observation
WHERE Observation.collection = 'JCMT'
  AND LOWER(Observation.proposal_id) = LOWER(?)`, s.caomDB)

	rows, cancel, err := s.queryContext(ctx, query, projectID)
	if err != nil {
		return catalog.Proposal{}, fmt.Errorf("caomdb: archived proposal %q: %w", projectID, err)
	}
	defer cancel()
	defer rows.Close()
	for rows.Next() {
		var pi, title sql.NullString
		if err := rows.Scan(&pi, &title); err != nil {
			return catalog.Proposal{}, fmt.Errorf("caomdb: scanning archived proposal row: %w", err)
		}
		if proposal.PI == "" && pi.String != "" {
			proposal.PI = pi.String
		}
		if proposal.Title == "" && title.String != "" {
			proposal.Title = title.String
		}
	}
	return proposal, rows.Err()
}
