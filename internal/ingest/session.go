// Package ingest turns reduced JCMT FITS files into CAOM observations.
//
// A Session processes one batch of files. Each file is examined
// independently: its headers are checked, its membership and provenance
// are resolved against the archive catalog, and the metadata it
// contributes is staged. Files that fail a check are reported and
// skipped without disturbing the rest of the batch. Once every file has
// been examined the staged metadata is merged into stored observations
// and obsolete planes left behind by earlier runs of the same recipe
// instances are removed.
package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/catalog"
	"github.com/jsaops/jsaingest/internal/repository"
)

const (
	// archiveName is the archive every artifact URI points into.
	archiveName = "JCMT"

	// speedOfLight is used to convert rest wavelengths to frequencies, m/s.
	speedOfLight = 2.99792485e8

	// csoTauFrequency is the frequency at which the CSO tau meter
	// measures atmospheric opacity, Hz.
	csoTauFrequency = 225.0e9
)

// collectionChoices are the collections files may be ingested into.
var collectionChoices = []string{"JCMT", "JCMTLS", "JCMTUSER", "SANDBOX"}

// externalCollections hold data processed outside the standard pipelines,
// so their headers carry metadata the pipelines would otherwise supply.
var externalCollections = []string{"JCMTLS", "JCMTUSER"}

// Config carries the settings for one ingestion session.
type Config struct {
	// Collection is the CAOM collection being ingested into. Must be
	// one of JCMT, JCMTLS, JCMTUSER or SANDBOX.
	Collection string

	// Replace permits re-ingestion of observations that already exist
	// in the target collection.
	Replace bool

	// DryRun reports everything that would change without writing to
	// or removing from the archive.
	DryRun bool

	// RunIDAliases maps current recipe instance identifiers to the
	// identifiers they replaced, so obsolete planes recorded under the
	// old identifier are still cleaned up.
	RunIDAliases map[string]string

	Logger *slog.Logger
}

// Session holds the state accumulated while ingesting one batch of files.
type Session struct {
	cfg Config
	cat catalog.Querier
	rep repository.Repository
	log *slog.Logger

	// memberCache maps membership header values, both plane URIs from
	// MBR headers and obsid tokens from OBS headers, to the raw plane
	// that represents the member exposure.
	memberCache map[string]memberRecord

	// inputCache maps file_ids and plane URI strings to the plane that
	// holds the file, filled from catalog rows and from the files of
	// the current batch.
	inputCache map[string]caom.PlaneURI

	// planned holds the metadata staged for each observation by the
	// files that passed their checks.
	planned map[caom.ObservationURI]*plannedObservation

	// removePlan maps each observation carrying one of this batch's
	// recipe instances to its plane product IDs. The flag records
	// whether the plane itself was produced by one of those instances
	// and is therefore obsolete unless re-ingested.
	removePlan map[caom.ObservationURI]map[string]bool

	// seenRunIDs records recipe instances already expanded into
	// removePlan so each is queried once per batch.
	seenRunIDs map[string]bool

	// earliestMJD and earliestObsID track the earliest member exposure
	// seen in the batch, for the summary report.
	earliestMJD   float64
	earliestObsID string
}

// memberRecord is the cached raw plane behind a membership header value.
type memberRecord struct {
	uri     caom.ObservationURI
	dateObs float64
	dateEnd float64
	release time.Time
}

// New prepares a session over the given catalog and observation archive.
func New(cfg Config, cat catalog.Querier, rep repository.Repository) (*Session, error) {
	ok := false
	for _, c := range collectionChoices {
		if cfg.Collection == c {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("collection %q is not one of %v", cfg.Collection, collectionChoices)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		cfg:         cfg,
		cat:         cat,
		rep:         rep,
		log:         log,
		memberCache: make(map[string]memberRecord),
		inputCache:  make(map[string]caom.PlaneURI),
		planned:     make(map[caom.ObservationURI]*plannedObservation),
		removePlan:  make(map[caom.ObservationURI]map[string]bool),
		seenRunIDs:  make(map[string]bool),
	}, nil
}

// plannedObservation accumulates the observation-level metadata staged by
// the files of the batch.
type plannedObservation struct {
	uri       caom.ObservationURI
	algorithm string
	obsType   string
	intent    caom.Intent
	intentSet bool

	metaRelease *time.Time
	proposal    *caom.Proposal
	target      *caom.Target
	instrument  *caom.Instrument
	environment *caom.Environment

	members   []caom.ObservationURI
	memberSet map[caom.ObservationURI]bool

	planes map[string]*plannedPlane
}

func newPlannedObservation(uri caom.ObservationURI) *plannedObservation {
	return &plannedObservation{
		uri:       uri,
		memberSet: make(map[caom.ObservationURI]bool),
		planes:    make(map[string]*plannedPlane),
	}
}

func (po *plannedObservation) sortedPlaneIDs() []string {
	ids := make([]string, 0, len(po.planes))
	for id := range po.planes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// plannedPlane accumulates the plane-level metadata staged by the files
// of the batch. Several files can stage into the same plane: preview
// spectra and images share the plane of the reduced cube they were
// drawn from.
type plannedPlane struct {
	productID        string
	calibrationLevel caom.CalibrationLevel
	haveCalibration  bool
	dataProductType  caom.DataProductType

	metaRelease *time.Time
	dataRelease *time.Time

	bandpass   string
	transition *caom.EnergyTransition

	provenance *caom.Provenance

	// inputs are the provenance inputs already resolved to planes.
	inputs   []caom.PlaneURI
	inputSet map[string]bool

	// fileset holds provenance file_ids not yet resolved to planes;
	// they are retried against the catalog after the whole batch has
	// been staged, so inputs produced later in the batch still count.
	fileset     []string
	filesetSeen map[string]bool

	artifacts  []*caom.Artifact
	artifactAt map[string]int

	// memberTimes records the time bounds of each member exposure
	// contributing to this plane, keyed by member URI, as [start, end]
	// in MJD.
	memberTimes map[caom.ObservationURI][2]float64
}

func newPlannedPlane(productID string) *plannedPlane {
	return &plannedPlane{
		productID:   productID,
		inputSet:    make(map[string]bool),
		filesetSeen: make(map[string]bool),
		artifactAt:  make(map[string]int),
		memberTimes: make(map[caom.ObservationURI][2]float64),
	}
}

// addInput records a resolved provenance input once.
func (p *plannedPlane) addInput(uri caom.PlaneURI) bool {
	key := uri.String()
	if p.inputSet[key] {
		return false
	}
	p.inputSet[key] = true
	p.inputs = append(p.inputs, uri)
	return true
}

// addPending records a provenance file_id to resolve after the batch.
func (p *plannedPlane) addPending(fileID string) {
	if p.filesetSeen[fileID] {
		return
	}
	p.filesetSeen[fileID] = true
	p.fileset = append(p.fileset, fileID)
}

// setArtifact stages an artifact, replacing any earlier one with the
// same URI.
func (p *plannedPlane) setArtifact(a *caom.Artifact) {
	if i, ok := p.artifactAt[a.URI]; ok {
		p.artifacts[i] = a
		return
	}
	p.artifactAt[a.URI] = len(p.artifacts)
	p.artifacts = append(p.artifacts, a)
}

// setMemberTime widens the recorded time bounds for a member exposure.
func (p *plannedPlane) setMemberTime(member caom.ObservationURI, start, end float64) {
	if _, ok := p.memberTimes[member]; !ok {
		p.memberTimes[member] = [2]float64{start, end}
	}
}

// merge folds the metadata staged by one file into the plane. Values the
// file did not supply leave the earlier ones in place; values it did
// supply win.
func (p *plannedPlane) merge(src *plannedPlane) {
	if src.haveCalibration {
		p.calibrationLevel = src.calibrationLevel
		p.haveCalibration = true
	}
	if src.dataProductType != "" {
		p.dataProductType = src.dataProductType
	}
	if src.metaRelease != nil {
		p.metaRelease = src.metaRelease
	}
	if src.dataRelease != nil {
		p.dataRelease = src.dataRelease
	}
	if src.bandpass != "" {
		p.bandpass = src.bandpass
	}
	if src.transition != nil {
		p.transition = src.transition
	}
	if src.provenance != nil {
		if p.provenance == nil {
			p.provenance = src.provenance
		} else {
			mergeProvenance(p.provenance, src.provenance)
		}
	}
	for _, in := range src.inputs {
		p.addInput(in)
	}
	for _, fid := range src.fileset {
		p.addPending(fid)
	}
	for _, a := range src.artifacts {
		p.setArtifact(a)
	}
	for m, t := range src.memberTimes {
		p.setMemberTime(m, t[0], t[1])
	}
}

// mergeProvenance overwrites dst's fields with src's wherever src
// supplies a value.
func mergeProvenance(dst, src *caom.Provenance) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Reference != "" {
		dst.Reference = src.Reference
	}
	if src.Version != "" {
		dst.Version = src.Version
	}
	if src.Project != "" {
		dst.Project = src.Project
	}
	if src.Producer != "" {
		dst.Producer = src.Producer
	}
	if src.RunID != "" {
		dst.RunID = src.RunID
	}
	if src.LastExecuted != nil {
		dst.LastExecuted = src.LastExecuted
	}
}

// sortedPlannedURIs returns the staged observations in a stable order.
func (s *Session) sortedPlannedURIs() []caom.ObservationURI {
	uris := make([]caom.ObservationURI, 0, len(s.planned))
	for uri := range s.planned {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i].String() < uris[j].String() })
	return uris
}

// merge folds a file's staged metadata into the session once the file
// has passed all of its checks.
func (s *Session) merge(st *fileStage) {
	po, ok := s.planned[st.obsURI]
	if !ok {
		po = newPlannedObservation(st.obsURI)
		s.planned[st.obsURI] = po
	}
	if st.algorithm != "" {
		po.algorithm = st.algorithm
	}
	if st.obsType != "" {
		po.obsType = st.obsType
	}
	if st.intentSet {
		po.intent = st.intent
		po.intentSet = true
	}
	if st.metaRelease != nil {
		po.metaRelease = st.metaRelease
	}
	if st.proposal != nil {
		po.proposal = st.proposal
	}
	if st.target != nil {
		po.target = st.target
	}
	if st.instrument != nil {
		po.instrument = st.instrument
	}
	if st.environment != nil {
		po.environment = st.environment
	}
	for _, m := range st.members {
		if !po.memberSet[m] {
			po.memberSet[m] = true
			po.members = append(po.members, m)
		}
	}
	if st.plane != nil {
		if pl, ok := po.planes[st.plane.productID]; ok {
			pl.merge(st.plane)
		} else {
			po.planes[st.plane.productID] = st.plane
		}
	}
	if st.earliestMJD > 0 && (s.earliestMJD == 0 || st.earliestMJD < s.earliestMJD) {
		s.earliestMJD = st.earliestMJD
		s.earliestObsID = st.earliestObsID
	}
}

// fileStage holds everything one file contributes, kept apart from the
// session until the file's checks have all passed.
type fileStage struct {
	fileID   string
	instream string

	obsURI    caom.ObservationURI
	algorithm string
	obsType   string

	intent    caom.Intent
	intentSet bool

	metaRelease *time.Time
	proposal    *caom.Proposal
	target      *caom.Target
	instrument  *caom.Instrument
	environment *caom.Environment

	frontend string
	backend  string
	inbeam   string

	members     []caom.ObservationURI
	memberSet   map[caom.ObservationURI]bool
	memberTimes map[caom.ObservationURI][2]float64

	// mbrCount and obsCount are the declared membership header counts,
	// used to decide whether environment data applies to the whole
	// observation.
	mbrCount int
	obsCount int

	// latestRelease is the latest release date over this file's
	// members, used for planes whose release tracks the raw data.
	latestRelease time.Time

	earliestMJD   float64
	earliestObsID string

	product        string
	scienceProduct string
	runID          string

	// proposalProject is the validated SURVEY acronym, kept separately
	// from the proposal because the data processing project may need it
	// even when no PROJECT header is present.
	proposalProject string

	plane *plannedPlane
}

func newFileStage(fileID string) *fileStage {
	return &fileStage{
		fileID:      fileID,
		memberSet:   make(map[caom.ObservationURI]bool),
		memberTimes: make(map[caom.ObservationURI][2]float64),
	}
}

// addMember records a resolved member exposure: its URI once and in
// order, its time bounds, and its contribution to the release date and
// earliest-exposure tracking.
func (st *fileStage) addMember(rec memberRecord) {
	if !st.memberSet[rec.uri] {
		st.memberSet[rec.uri] = true
		st.members = append(st.members, rec.uri)
	}
	if rec.dateObs > 0 {
		if _, ok := st.memberTimes[rec.uri]; !ok {
			st.memberTimes[rec.uri] = [2]float64{rec.dateObs, rec.dateEnd}
		}
		if st.earliestMJD == 0 || rec.dateObs < st.earliestMJD {
			st.earliestMJD = rec.dateObs
			st.earliestObsID = rec.uri.ObservationID
		}
	}
}

// noteRelease tracks the latest release date over the file's members.
func (st *fileStage) noteRelease(release time.Time) {
	if !release.IsZero() && release.After(st.latestRelease) {
		st.latestRelease = release
	}
}
