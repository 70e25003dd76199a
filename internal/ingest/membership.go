package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/validate"
)

// memberObsIDPattern matches the obsid_subsysnr tokens carried by OBSn
// headers. The capture groups rebuild an observationID search pattern
// that tolerates differences in zero padding of the observation number.
var memberObsIDPattern = regexp.MustCompile(
	`^(scuba2|acsis|DAS|AOSC|scuba)_\d+_(\d{8}[tT]\d{6})_\d+$`)

// rawProductPattern matches the productIDs of raw planes.
var rawProductPattern = regexp.MustCompile(`^raw.*`)

// resolveMembership reads the MBRn or OBSn headers and resolves each
// member exposure against the archive. MBRn headers carry observation
// URIs; OBSn headers carry the obsid_subsysnr tokens written by the raw
// data acquisition. Resolved members are recorded on the stage together
// with their time bounds and release dates, and every archived plane
// examined along the way seeds the provenance input cache, since the
// inputs of a composite are usually planes of its members. A non-nil
// error means the catalog could not be queried.
func (s *Session) resolveMembership(ctx context.Context, h fitsheader.Header, st *fileStage, ck *validate.Checker) error {
	if h.IsDefined("MBRCNT") {
		n, _ := h.Int("MBRCNT")
		st.mbrCount = int(n)
		for i := 1; i <= st.mbrCount; i++ {
			key := fmt.Sprintf("MBR%d", i)
			if !ck.ExpectKeyword(h, key, true) {
				continue
			}
			v, _ := h.String(key)
			parts := strings.Split(v, "/")
			if len(parts) != 2 || parts[0] != "caom:JCMT" {
				ck.Errorf("%s must point to an observation in the JCMT collection: %s", key, v)
				continue
			}
			uri := caom.NewObservationURI("JCMT", parts[1])
			rec, found := s.memberCache[uri.String()]
			if found {
				st.noteRelease(rec.release)
			} else {
				var err error
				rec, found, err = s.fetchMemberByObsID(ctx, uri, st)
				if err != nil {
					return err
				}
			}
			if !found {
				// Not fatal: raw ingestion of the member may still be
				// in flight, but the lost membership must be visible.
				ck.Warnf("%s = %s is not present in the JSA", key, v)
				continue
			}
			st.addMember(rec)
		}
		return nil
	}

	if !h.IsDefined("OBSCNT") {
		return nil
	}
	n, _ := h.Int("OBSCNT")
	st.obsCount = int(n)
	for i := 1; i <= st.obsCount; i++ {
		key := fmt.Sprintf("OBS%d", i)
		if !ck.ExpectKeyword(h, key, true) {
			continue
		}
		token, _ := h.String(key)
		rec, found := s.memberCache[token]
		if found {
			st.noteRelease(rec.release)
		} else {
			m := memberObsIDPattern.FindStringSubmatch(token)
			if m == nil {
				ck.Errorf("%s = %q does not match the pattern expected for the observationID of a member: %s",
					key, token, memberObsIDPattern)
				continue
			}
			var err error
			rec, found, err = s.fetchMemberByToken(ctx, key, token, m[1]+"%"+m[2], st, ck)
			if err != nil {
				return err
			}
		}
		if !found {
			ck.Errorf("%s = %s is not present in the JSA", key, token)
			continue
		}
		st.addMember(rec)
	}
	return nil
}

// fetchMemberByObsID resolves an MBR member by its observationID. The
// first raw plane with complete time information identifies the member
// and is cached for the rest of the batch; every complete plane seeds
// the input cache.
func (s *Session) fetchMemberByObsID(ctx context.Context, uri caom.ObservationURI, st *fileStage) (memberRecord, bool, error) {
	rows, err := s.cat.ObservationPlanes(ctx, "JCMT", uri.ObservationID)
	if err != nil {
		return memberRecord{}, false, fmt.Errorf("querying member planes of %s: %w", uri, err)
	}
	var rec memberRecord
	found := false
	for _, row := range rows {
		if row.DateObs == 0 || row.DateEnd == 0 || row.Release.IsZero() {
			continue
		}
		if !found && rawProductPattern.MatchString(row.ProductID) {
			rec = memberRecord{
				uri:     uri,
				dateObs: row.DateObs,
				dateEnd: row.DateEnd,
				release: row.Release,
			}
			s.memberCache[uri.String()] = rec
			st.noteRelease(row.Release)
			found = true
		}
		s.cacheInputRow("JCMT", uri.ObservationID, row.ProductID, row.ArtifactURI)
	}
	return rec, found, nil
}

// fetchMemberByToken resolves an OBS member from an observationID
// pattern. The pattern is expected to match exactly one observation;
// rows from a second one are reported and the remainder discarded. The
// resolved member is cached under both the header token and the
// observation URI so later MBR headers for the same observation hit the
// cache too.
func (s *Session) fetchMemberByToken(ctx context.Context, key, token, pattern string, st *fileStage, ck *validate.Checker) (memberRecord, bool, error) {
	rows, err := s.cat.PlanesLikeObservationID(ctx, pattern)
	if err != nil {
		return memberRecord{}, false, fmt.Errorf("querying member planes like %q: %w", pattern, err)
	}
	var rec memberRecord
	found := false
	first := ""
	for _, row := range rows {
		if row.DateObs == 0 || row.DateEnd == 0 || row.Release.IsZero() {
			continue
		}
		if first == "" {
			first = row.ObservationID
			st.noteRelease(row.Release)
		} else if row.ObservationID != first {
			ck.Errorf("%s = %s with obsid_pattern = %s matched %s and %s",
				key, token, pattern, first, row.ObservationID)
			break
		}
		if !found && rawProductPattern.MatchString(row.ProductID) {
			uri := caom.NewObservationURI("JCMT", row.ObservationID)
			rec = memberRecord{
				uri:     uri,
				dateObs: row.DateObs,
				dateEnd: row.DateEnd,
				release: row.Release,
			}
			s.memberCache[token] = rec
			s.memberCache[uri.String()] = rec
			found = true
		}
		s.cacheInputRow("JCMT", row.ObservationID, row.ProductID, row.ArtifactURI)
	}
	return rec, found, nil
}

// cacheInputRow registers an archived plane, and the file_id of its
// artifact, as candidate provenance inputs.
func (s *Session) cacheInputRow(collection, observationID, productID, artifactURI string) {
	uri := caom.NewPlaneURI(collection, observationID, productID)
	if artifactURI != "" {
		if fid := fileIDFromURI(artifactURI); fid != "" {
			s.inputCache[fid] = uri
		}
	}
	s.inputCache[uri.String()] = uri
}

// fileIDFromURI extracts the trailing file_id from an artifact URI.
func fileIDFromURI(artifactURI string) string {
	if i := strings.LastIndex(artifactURI, "/"); i >= 0 {
		return artifactURI[i+1:]
	}
	return artifactURI
}
