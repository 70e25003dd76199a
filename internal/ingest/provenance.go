package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/jcmt"
	"github.com/jsaops/jsaingest/internal/validate"
)

// planeURIRegexText is quoted in errors about malformed INPn values.
const planeURIRegexText = `^caom:([^\s/]+)/([^\s/]+)/([^\s/]+)$`

// adPrefixPattern strips the archive prefix from an ad URI, leaving the
// file_id.
var adPrefixPattern = regexp.MustCompile(`ad:[^/]+/`)

// resolveProvenance reads the provenance headers of a science product.
// Files carry either INPn headers, whose values are plane URIs added
// without further checks, or PRVn headers, whose values are file names.
// PRVn entries resolve through the input cache when possible; the rest
// wait on the plane's pending set until the whole batch has been staged.
// A defined INPCNT selects the INP convention even when it is zero.
func (s *Session) resolveProvenance(h fitsheader.Header, st *fileStage, ck *validate.Checker) {
	isScience := st.product != "" && st.product == st.scienceProduct
	if h.IsDefined("INPCNT") {
		n, _ := h.Int("INPCNT")
		if !isScience || n <= 0 {
			return
		}
		for i := 1; i <= int(n); i++ {
			key := fmt.Sprintf("INP%d", i)
			if !ck.ExpectKeyword(h, key, true) {
				continue
			}
			v, _ := h.String(key)
			uri, err := caom.ParsePlaneURI(v)
			if err != nil {
				ck.Errorf("%s = %s does not match the regex for a plane URI: %s",
					key, v, planeURIRegexText)
				continue
			}
			st.plane.addInput(uri)
		}
		return
	}

	if !h.IsDefined("PRVCNT") {
		return
	}
	n, _ := h.Int("PRVCNT")
	if !isScience || n <= 0 {
		return
	}
	for i := 1; i <= int(n); i++ {
		key := fmt.Sprintf("PRV%d", i)
		if !ck.ExpectKeyword(h, key, true) {
			continue
		}
		prvn, _ := h.String(key)

		// jsawrapdr leaves scratch files in the provenance headers of
		// some processed data; they never reach the archive.
		if strings.HasPrefix(prvn, "oractemp") {
			s.log.Warn("provenance contains oractemp file",
				"file_id", st.fileID, "key", key)
			continue
		}

		prvnID := jcmt.MakeFileID(prvn)
		if prvnID == st.fileID {
			ck.Warnf("file_id = %s includes itself in its provenance as %s",
				st.fileID, key)
			continue
		}
		if uri, ok := s.inputCache[prvnID]; ok {
			st.plane.addInput(uri)
			continue
		}
		st.plane.addPending(prvnID)
	}
}

// checkProvenanceInputs resolves the provenance file_ids still pending
// after every file of the batch has been staged, so inputs produced by
// later files in the same batch are found. File_ids with no plane in
// the current release or the archive are reported and dropped; the
// count of them is returned. A non-nil error means the catalog could
// not be queried.
func (s *Session) checkProvenanceInputs(ctx context.Context) (int, error) {
	unresolved := 0
	for _, obsURI := range s.sortedPlannedURIs() {
		po := s.planned[obsURI]
		for _, prodID := range po.sortedPlaneIDs() {
			pl := po.planes[prodID]
			for _, fid := range pl.fileset {
				uri, found, err := s.lookupFileID(ctx, fid)
				if err != nil {
					return unresolved, err
				}
				if !found {
					s.log.Warn("provenance input is neither in the JSA already nor in the current release",
						"file_id", fid, "plane", obsURI.Plane(prodID).String())
					unresolved++
					continue
				}
				if pl.addInput(uri) {
					s.log.Info("provenance input resolved",
						"file_id", fid, "input", uri.String())
				}
			}
			pl.fileset = nil
		}
	}
	return unresolved, nil
}

// lookupFileID finds the plane holding a file, from the input cache or
// the archive. Archive rows from trusted collections are cached whether
// or not they answer this lookup, since files of one observation tend
// to be asked about together.
func (s *Session) lookupFileID(ctx context.Context, fileID string) (caom.PlaneURI, bool, error) {
	if uri, ok := s.inputCache[fileID]; ok {
		return uri, true, nil
	}
	rows, err := s.cat.ArtifactsForFileID(ctx, fileID)
	if err != nil {
		return caom.PlaneURI{}, false, fmt.Errorf("querying planes holding %s: %w", fileID, err)
	}
	var match caom.PlaneURI
	found := false
	for _, row := range rows {
		if !s.trustedCollection(row.Collection) {
			continue
		}
		uri := caom.NewPlaneURI(row.Collection, row.ObservationID, row.ProductID)
		fid := adPrefixPattern.ReplaceAllString(row.ArtifactURI, "")
		if fid == fileID {
			match = uri
			found = true
		}
		s.inputCache[fid] = uri
	}
	return match, found, nil
}

// trustedCollection reports whether provenance may refer into the
// collection.
func (s *Session) trustedCollection(c string) bool {
	switch c {
	case s.cfg.Collection, "JCMT", "JCMTLS", "JCMTUSER":
		return true
	}
	return false
}
