package ingest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jsaops/jsaingest/internal/caom"
	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/jcmt"
	"github.com/jsaops/jsaingest/internal/validate"
)

// surveyAcronyms are the legacy survey projects accepted in SURVEY.
var surveyAcronyms = []string{"CLS", "DDS", "GBS", "JPS", "NGS", "SASSY", "SLS"}

// scienceProducts maps each pipeline product to the science product
// whose plane holds it. Preview spectra and images land on the plane of
// the science product they were drawn from.
var scienceProducts = map[string]string{
	"reduced":    "reduced",
	"rsp":        "reduced",
	"rimg":       "reduced",
	"cube":       "cube",
	"healpix":    "healpix",
	"hpxrsp":     "healpix",
	"hpxrimg":    "healpix",
	"peak-cat":   "peak-cat",
	"extent-cat": "extent-cat",
	"point-cat":  "point-cat",
}

var pipelineProducts = sortedKeys(scienceProducts)

// standardProducts and legacyProducts partition the JCMT pipeline
// products by the processing project that makes them.
var (
	standardProducts = []string{"reduced", "cube", "rsp", "rimg"}
	legacyProducts   = []string{"healpix", "hpxrsp", "hpxrimg", "peak-cat", "extent-cat"}
	projectProducts  = append(append([]string{}, standardProducts...), legacyProducts...)
)

// calibratedProducts are the science products with a defined
// calibration level.
var calibratedProducts = []string{"cube", "extent-cat", "healpix", "peak-cat", "point-cat", "reduced"}

// productTypeDefaults supplies the PRODTYPE translation when the header
// is absent.
var productTypeDefaults = map[string]string{
	"cube":       "0=science,1=noise,auxiliary",
	"reduced":    "0=science,1=noise,auxiliary",
	"healpix":    "0=science,1=noise,auxiliary",
	"rsp":        "0=preview,1=noise,auxiliary",
	"rimg":       "0=preview,1=noise,auxiliary",
	"hpxrsp":     "0=preview,1=noise,auxiliary",
	"hpxrimg":    "0=preview,1=noise,auxiliary",
	"peak-cat":   "0=catalog,auxiliary",
	"extent-cat": "0=catalog,auxiliary",
	"point-cat":  "0=catalog,auxiliary",
}

const productTypeOptions = `science|calibration|preview|info|catalog|noise|weight|auxiliary`

var (
	partTypePattern    = regexp.MustCompile(`^(\d+)=(` + productTypeOptions + `)$`)
	defaultTypePattern = regexp.MustCompile(`^(` + productTypeOptions + `)$`)
	whitespacePattern  = regexp.MustCompile(`\s`)
	commaRunPattern    = regexp.MustCompile(`,{2,}`)

	jacInstancePattern = regexp.MustCompile(`^jac-([1-9][0-9]*)$`)
	hexInstancePattern = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)
)

// noAstronomyTypes are observation types that are never archived.
var noAstronomyTypes = []string{"flatfield", "noise", "setup", "skydip"}

// buildFile examines one file and stages everything it contributes to
// its observation. The returned checker carries the file's errors and
// warnings; header problems never abort the batch. A non-nil error
// means a catalog query failed and the batch cannot continue.
func (s *Session) buildFile(ctx context.Context, f fitsheader.File) (*validate.Checker, *fileStage, error) {
	h := f.Header
	ck := validate.New(f.Base())
	st := newFileStage(jcmt.MakeFileID(f.Path))

	s.log.Info("starting", "file_id", st.fileID)

	// The FITS structure keywords must be present before anything else
	// in the header is believed.
	for _, key := range [...]string{"BITPIX", "CHECKSUM", "DATASUM"} {
		ck.ExpectKeyword(h, key, true)
	}

	ck.ExpectKeyword(h, "INSTREAM", true)
	allowedStreams := []string{s.cfg.Collection}
	if s.cfg.Collection == "SANDBOX" {
		allowedStreams = collectionChoices
	}
	ck.RestrictedValue(h, "INSTREAM", allowedStreams)
	if h.IsDefined("INSTREAM") {
		st.instream, _ = h.String("INSTREAM")
	}

	// Observation identity. Single exposures carry their raw OBSID and
	// can only go into the JCMT collection; every other ASN_TYPE names
	// a composite identified by ASN_ID.
	algorithm := "custom"
	if h.IsDefined("ASN_TYPE") {
		algorithm, _ = h.String("ASN_TYPE")
	}
	var obsID string
	if algorithm == "obs" {
		ck.RestrictedValue(h, "INSTREAM", []string{"JCMT"})
		if ck.ExpectKeyword(h, "OBSID", true) {
			algorithm = caom.AlgorithmExposure
			obsID, _ = h.String("OBSID")
		}
	} else if ck.ExpectKeyword(h, "ASN_ID", true) {
		obsID, _ = h.String("ASN_ID")
		if err := s.checkDuplicate(ctx, obsID, ck); err != nil {
			return nil, nil, err
		}
	}
	st.obsURI = caom.NewObservationURI(s.cfg.Collection, obsID)
	st.algorithm = algorithm

	// Membership. Exposures date themselves; composites date from
	// their earliest member.
	if st.algorithm == caom.AlgorithmExposure {
		if t, ok := h.Time("DATE-OBS"); ok {
			st.earliestMJD = timeToMJD(t)
		}
		if h.IsDefined("OBSID") {
			st.earliestObsID, _ = h.String("OBSID")
		}
	}
	if err := s.resolveMembership(ctx, h, st, ck); err != nil {
		return nil, nil, err
	}

	// Observation type from OBS_TYPE and SAM_MODE.
	var rawObsType string
	if ck.ExpectKeyword(h, "OBS_TYPE", true) {
		v, _ := h.String("OBS_TYPE")
		rawObsType = strings.TrimSpace(v)
		if contains(noAstronomyTypes, rawObsType) {
			ck.Errorf("observation types in (flatfield, noise, setup, skydip) contain no astronomical data and cannot be ingested")
		}
		if rawObsType == "science" {
			ck.ExpectKeyword(h, "SAM_MODE", false)
		}
		sam := ""
		if h.IsDefined("SAM_MODE") {
			v, _ := h.String("SAM_MODE")
			sam = strings.TrimSpace(v)
		}
		st.obsType = jcmt.ObsType(rawObsType, sam)
	}

	// Instrument identification, either verbatim from INSTNAME or
	// derived from INSTRUME, INBEAM and BACKEND.
	var frontend, backend, inbeam, instName string
	if h.IsDefined("INSTNAME") {
		v, _ := h.String("INSTNAME")
		instName = strings.ToUpper(strings.TrimSpace(v))
		if strings.Contains(instName, "SCUBA-2") {
			frontend, backend = "SCUBA-2", "SCUBA-2"
		} else if parts := strings.Split(instName, "-"); len(parts) >= 2 {
			frontend = parts[len(parts)-2]
			backend = parts[len(parts)-1]
		}
	} else {
		if h.IsDefined("INSTRUME") {
			v, _ := h.String("INSTRUME")
			frontend = strings.ToUpper(strings.TrimSpace(v))
		}
		if h.IsDefined("INBEAM") {
			v, _ := h.String("INBEAM")
			inbeam = strings.ToUpper(strings.TrimSpace(v))
		}
		ck.ExpectKeyword(h, "BACKEND", true)
		if v, ok := ck.RestrictedValue(h, "BACKEND", []string{"SCUBA-2", "ACSIS", "DAS", "AOSC"}); ok {
			backend = strings.ToUpper(strings.TrimSpace(v))
		}
		if name, err := jcmt.InstrumentName(frontend, backend, inbeam); err == nil {
			instName = name
		}
	}
	st.frontend, st.backend, st.inbeam = frontend, backend, inbeam

	if jcmt.IsHeterodyne(backend) {
		if inbeam != "" && inbeam != "POL" {
			ck.Errorf("INBEAM can only be blank or POL for heterodyne observations")
		}
		if h.IsDefined("OBS_TYPE") {
			ck.RestrictedValue(h, "OBS_TYPE", []string{"pointing", "science", "focus", "skydip"})
		}
		if h.IsDefined("SAM_MODE") {
			ck.RestrictedValue(h, "SAM_MODE", []string{"jiggle", "grid", "raster", "scan"})
		}
	} else if backend == "SCUBA-2" {
		if h.IsDefined("OBS_TYPE") {
			ck.RestrictedValue(h, "OBS_TYPE", []string{"pointing", "science", "focus", "skydip", "flatfield", "setup", "noise"})
		}
		if h.IsDefined("SAM_MODE") {
			ck.RestrictedValue(h, "SAM_MODE", []string{"scan", "stare"})
		}
	}

	config := make(map[string]string)
	if h.IsDefined("SW_MODE") {
		config["switching_mode"], _ = h.String("SW_MODE")
	}
	if inbeam != "" {
		config["inbeam"] = inbeam
	}
	if h.IsDefined("SCAN_PAT") {
		config["x_scan_pat"], _ = h.String("SCAN_PAT")
	}
	if jcmt.IsHeterodyne(backend) {
		if h.IsDefined("OBS_SB") {
			config["sideband"], _ = h.String("OBS_SB")
		}
		if h.IsDefined("SB_MODE") {
			config["sideband_filter"], _ = h.String("SB_MODE")
		}
	}
	keywords, problems := jcmt.InstrumentKeywords(jcmt.StdPipe, frontend, backend, config)
	if len(problems) > 0 {
		ck.Errorf("instrument_keywords could not be constructed from %v", config)
		s.log.Debug("instrument keyword problems", "file_id", st.fileID, "problems", problems)
	} else if instName != "" {
		st.instrument = &caom.Instrument{Name: instName, Keywords: keywords}
	}

	ck.RestrictedValue(h, "TELESCOP", []string{"JCMT"})

	// Target metadata.
	if ck.ExpectKeyword(h, "OBJECT", false) {
		v, _ := h.String("OBJECT")
		tgt := &caom.Target{Name: jcmt.TargetName(v)}
		if backend != "SCUBA-2" && h.IsDefined("ZSOURCE") {
			if z, ok := h.Float("ZSOURCE"); ok {
				tgt.Redshift = &z
			}
		}
		if h.IsDefined("TARGTYPE") {
			if tt, ok := ck.RestrictedValue(h, "TARGTYPE", []string{"FIELD", "OBJECT"}); ok {
				tgt.Type = strings.ToLower(tt)
			}
		}
		std := false
		if b, ok := h.Bool("STANDARD"); ok && b {
			std = true
		}
		tgt.Standard = &std

		// A blank position marks a moving target in an offset frame.
		moving := isBlank(h, "OBSRA") || isBlank(h, "OBSDEC")
		if b, ok := h.Bool("MOVING"); ok && b {
			moving = true
		}
		tgt.Moving = &moving

		if h.IsDefined("OBSRA") != h.IsDefined("OBSDEC") {
			ck.Warnf("OBSRA and OBSDEC must be defined together")
		}
		ctype1, _ := h.String("CTYPE1")
		offsetFrame := moving && strings.HasPrefix(ctype1, "OFLN") && h.Has("CTYPE1A")
		if !offsetFrame && h.IsDefined("OBSRA") && h.IsDefined("OBSDEC") {
			ra, okRA := h.Float("OBSRA")
			dec, okDec := h.Float("OBSDEC")
			if okRA && okDec {
				tgt.Position = &caom.TargetPosition{
					CoordSys: "ICRS",
					Equinox:  2000.0,
					RA:       ra,
					Dec:      dec,
				}
			}
		}
		st.target = tgt
	}

	if rawObsType != "" && backend != "" {
		st.intent = jcmt.Intent(rawObsType, backend)
		st.intentSet = true
	}

	// Proposal. The survey acronym may be needed for the data
	// processing project even when the PROJECT header is ambiguous.
	if h.IsDefined("SURVEY") {
		if v, ok := ck.RestrictedValue(h, "SURVEY", surveyAcronyms); ok {
			st.proposalProject = v
		}
	}
	if h.IsDefined("PROJECT") {
		id, _ := h.String("PROJECT")
		prop := &caom.Proposal{ID: id, Project: st.proposalProject}
		if h.IsDefined("PI") {
			prop.PI, _ = h.String("PI")
		}
		if h.IsDefined("TITLE") {
			prop.Title, _ = h.String("TITLE")
		}
		if prop.PI == "" || prop.Title == "" {
			info, err := s.cat.ProposalInfo(ctx, id)
			if err != nil {
				return nil, nil, fmt.Errorf("querying proposal %s: %w", id, err)
			}
			if prop.PI == "" {
				prop.PI = info.PI
			}
			if prop.Title == "" {
				prop.Title = info.Title
			}
		}
		st.proposal = prop
	}

	// Environment applies to the whole observation only for exposures
	// and single-member composites.
	if st.algorithm == caom.AlgorithmExposure || st.obsCount == 1 || st.mbrCount == 1 {
		env := &caom.Environment{}
		recorded := false
		if v, ok := h.Float("SEEINGST"); ok && v > 0 {
			env.SeeingArcsec = &v
			recorded = true
		}
		if v, ok := h.Float("HUMSTART"); ok {
			if v < 0 || v > 100 {
				ck.Warnf("HUMSTART = %v is outside the range [0, 100]", v)
			}
			hum := v
			if hum < 0 {
				hum = 0
			} else if hum > 100 {
				hum = 100
			}
			env.Humidity = &hum
			recorded = true
		}
		if v, ok := h.Float("ELSTART"); ok {
			if v <= 0 || v >= 90 {
				ck.Warnf("ELSTART = %v is outside the range (0, 90)", v)
			} else {
				env.Elevation = &v
				recorded = true
			}
		}
		if v, ok := h.Float("TAU225ST"); ok {
			if v < 0 {
				ck.Warnf("TAU225ST = %v is negative", v)
			} else {
				wavelength := speedOfLight / csoTauFrequency
				env.Tau = &v
				env.WavelengthTau = &wavelength
				recorded = true
			}
		}
		if v, ok := h.Float("ATSTART"); ok {
			env.AmbientTemp = &v
			recorded = true
		}
		if recorded {
			st.environment = env
		}
	}

	// Plane identity.
	product := ""
	if ck.ExpectKeyword(h, "PRODUCT", true) {
		product, _ = h.String("PRODUCT")
	}
	st.product = product

	// The standard and legacy pipelines must supply the headers the
	// productID is derived from.
	if s.cfg.Collection == "JCMT" || st.instream == "JCMT" {
		if backend == "SCUBA-2" {
			ck.ExpectKeyword(h, "FILTER", true)
		} else {
			ck.ExpectKeyword(h, "RESTFRQ", true)
			ck.ExpectKeyword(h, "SUBSYSNR", true)
			ck.ExpectKeyword(h, "BWMODE", true)
		}
	}

	var filter, bwMode, subsysNr string
	var restFreq float64
	if backend == "SCUBA-2" && h.IsDefined("FILTER") {
		filter, _ = h.String("FILTER")
	} else {
		// RESTFREQ and a rest wavelength are accepted as equivalents
		// of RESTFRQ.
		if v, ok := h.Float("RESTFREQ"); ok {
			restFreq = v
		} else if v, ok := h.Float("RESTWAV"); ok && v != 0 {
			restFreq = speedOfLight / v
		} else if v, ok := h.Float("RESTFRQ"); ok {
			restFreq = v
		}
		if h.IsDefined("SUBSYSNR") {
			subsysNr, _ = h.String("SUBSYSNR")
		}
		if h.IsDefined("BWMODE") {
			bwMode, _ = h.String("BWMODE")
		}
	}

	scienceProduct := ""
	productID := ""
	if contains(externalCollections, st.instream) {
		// Externally processed data names its own plane; the science
		// product is the first dash-separated token.
		if ck.ExpectKeyword(h, "PRODID", true) {
			productID, _ = h.String("PRODID")
			scienceProduct = productID
			if i := strings.Index(productID, "-"); i >= 0 {
				scienceProduct = productID[:i]
			}
		}
	} else {
		if sp, ok := scienceProducts[product]; ok {
			scienceProduct = sp
		} else {
			ck.Errorf("product = %q is not one of the pipeline products: %v", product, pipelineProducts)
		}
		switch {
		case scienceProduct == "":
		case filter != "":
			id, err := jcmt.ProductID(backend, scienceProduct, jcmt.ProductOptions{Filter: filter})
			if err != nil {
				ck.Errorf("%v", err)
			} else {
				productID = id
			}
		case restFreq > 0 && bwMode != "" && subsysNr != "":
			if contains([]string{"reduced", "rimg", "rsp", "cube"}, product) {
				id, err := jcmt.ProductID(backend, scienceProduct, jcmt.ProductOptions{
					RestFreqHz: restFreq,
					BWMode:     bwMode,
					SubsysNr:   subsysNr,
				})
				if err != nil {
					ck.Errorf("%v", err)
				} else {
					productID = id
				}
			}
		}
	}
	st.scienceProduct = scienceProduct
	if productID == "" {
		ck.Errorf("productID could not be determined")
	}

	plane := newPlannedPlane(productID)
	st.plane = plane

	// Register this file's plane so provenance references from other
	// files of the batch resolve without a catalog query.
	if productID != "" && obsID != "" {
		self := caom.NewPlaneURI(s.cfg.Collection, obsID, productID)
		s.inputCache[st.fileID] = self
		s.inputCache[self.String()] = self
	}

	// Release dates for the standard pipeline track the raw data.
	// Legacy healpix products never set them.
	if st.instream == "JCMT" && (product == "reduced" || product == "cube") {
		if st.latestRelease.IsZero() {
			ck.Errorf("release date could not be calculated from membership: %s", obsID)
		} else {
			rel := st.latestRelease
			st.metaRelease = &rel
			plane.metaRelease = &rel
			plane.dataRelease = &rel
		}
	}

	// Calibration level is defined for science products only.
	if product != "" && product == scienceProduct {
		if contains(externalCollections, st.instream) {
			if ck.ExpectKeyword(h, "CALLEVEL", true) {
				if v, ok := ck.RestrictedValue(h, "CALLEVEL", []string{"calibrated", "product"}); ok {
					if v == "calibrated" {
						plane.calibrationLevel = caom.Calibrated
					} else {
						plane.calibrationLevel = caom.Product
					}
					plane.haveCalibration = true
				}
			}
		} else {
			switch scienceProduct {
			case "cube":
				plane.calibrationLevel = caom.RawStandard
				plane.haveCalibration = true
			case "reduced", "healpix":
				plane.calibrationLevel = caom.Calibrated
				plane.haveCalibration = true
			case "point-cat", "extent-cat", "peak-cat":
				plane.calibrationLevel = caom.Product
				plane.haveCalibration = true
			default:
				ck.Errorf("science product %q is not in %v", scienceProduct, calibratedProducts)
			}
		}
	}

	// Data product type, from DATAPROD or from the axes of the science
	// product. Axes arrive as X, Y, Freq, Pol, possibly degenerate.
	if h.IsDefined("DATAPROD") {
		if v, ok := ck.RestrictedValue(h, "DATAPROD", []string{"image", "spectrum", "cube", "catalog"}); ok {
			plane.dataProductType = caom.DataProductType(v)
		}
	} else if product == scienceProduct {
		switch product {
		case "reduced", "cube", "healpix":
			naxis, _ := h.Int("NAXIS")
			naxis4, _ := h.Int("NAXIS4")
			if naxis == 3 || (naxis == 4 && naxis4 == 1) {
				n1, _ := h.Int("NAXIS1")
				n2, _ := h.Int("NAXIS2")
				n3, _ := h.Int("NAXIS3")
				switch {
				case n1 == 1 && n2 == 1:
					plane.dataProductType = caom.TypeSpectrum
				case n3 == 1:
					plane.dataProductType = caom.TypeImage
				default:
					plane.dataProductType = caom.TypeCube
				}
			}
		case "peak-cat", "extent-cat", "point-cat":
			plane.dataProductType = caom.TypeCatalog
		}
	}

	// Energy labels.
	if backend == "SCUBA-2" && filter != "" {
		plane.bandpass = "SCUBA-2-" + filter + "um"
	} else if jcmt.IsHeterodyne(backend) && h.IsDefined("MOLECULE") && h.IsDefined("TRANSITI") {
		molecule, _ := h.String("MOLECULE")
		if molecule != "No Line" {
			transition, _ := h.String("TRANSITI")
			plane.transition = &caom.EnergyTransition{Species: molecule, Transition: transition}
		}
	}

	// Provenance block.
	prov := &caom.Provenance{}
	if ck.ExpectKeyword(h, "RECIPE", true) {
		prov.Name, _ = h.String("RECIPE")
	}

	dpProject := ""
	if h.IsDefined("DPPROJ") {
		v, _ := h.String("DPPROJ")
		dpProject = strings.TrimSpace(v)
	} else if st.instream == "JCMTLS" && st.proposalProject != "" {
		dpProject = st.proposalProject
	} else if st.instream == "JCMT" {
		switch {
		case contains(standardProducts, product):
			dpProject = "JCMT_STANDARD_PIPELINE"
		case contains(legacyProducts, product):
			dpProject = "JCMT_LEGACY_PIPELINE"
		default:
			ck.Errorf("UNKNOWN PRODUCT in collection=JCMT: %s must be one of %v", product, projectProducts)
		}
	}
	if dpProject != "" {
		prov.Project = dpProject
	} else {
		ck.Errorf("data processing project is undefined")
	}

	if h.IsDefined("REFERENC") {
		prov.Reference, _ = h.String("REFERENC")
	}
	if h.IsDefined("PROCVERS") {
		prov.Version, _ = h.String("PROCVERS")
	} else if h.IsDefined("ENGVERS") && h.IsDefined("PIPEVERS") {
		eng, _ := h.String("ENGVERS")
		pipe, _ := h.String("PIPEVERS")
		prov.Version = "ENG:" + clip(eng, 25) + " PIPE:" + clip(pipe, 25)
	}
	if h.IsDefined("PRODUCER") {
		prov.Producer, _ = h.String("PRODUCER")
	}

	if ck.ExpectKeyword(h, "DPRCINST", true) {
		st.runID = normalizeRunID(h)
		if st.runID == "" {
			ck.Errorf("could not calculate dprcinst")
		} else {
			prov.RunID = st.runID
		}
	}

	if st.earliestMJD > 0 && st.runID != "" {
		s.log.Info("earliest utdate",
			"date", mjdToTime(st.earliestMJD).Format("2006-01-02"),
			"observation", st.earliestObsID,
			"runid", st.runID)
	}

	if ck.ExpectKeyword(h, "DPDATE", true) {
		if t, ok := h.Time("DPDATE"); ok {
			prov.LastExecuted = &t
		} else {
			v, _ := h.String("DPDATE")
			ck.Errorf("DPDATE = %q is not a recognizable datetime", v)
		}
	}
	plane.provenance = prov

	// Artifact and its parts from PRODTYPE.
	prodtype := "auxiliary"
	if h.IsDefined("PRODTYPE") {
		v, _ := h.String("PRODTYPE")
		prodtype = strings.ToLower(v)
	} else if def, ok := productTypeDefaults[product]; ok {
		prodtype = def
	}
	prodtype = whitespacePattern.ReplaceAllString(prodtype, "")
	prodtype = commaRunPattern.ReplaceAllString(prodtype, ",")

	type partType struct{ ext, typ string }
	var extParts []partType
	defaultType := ""
	for _, token := range strings.Split(prodtype, ",") {
		if m := partTypePattern.FindStringSubmatch(token); m != nil {
			extParts = append(extParts, partType{m[1], m[2]})
		} else if defaultTypePattern.MatchString(token) {
			defaultType = token
		}
	}
	sort.Slice(extParts, func(i, j int) bool { return extParts[i].ext < extParts[j].ext })

	art := &caom.Artifact{URI: "ad:" + archiveName + "/" + st.fileID}
	switch {
	case len(extParts) > 0:
		for _, p := range extParts {
			n, _ := strconv.Atoi(p.ext)
			art.Parts = append(art.Parts, caom.Part{
				Name:        strconv.Itoa(n),
				ProductType: caom.ProductType(p.typ),
			})
		}
		art.ProductType = caom.ProductType(defaultType)
	case defaultType != "":
		art.ProductType = caom.ProductType(defaultType)
	default:
		ck.Errorf("ProductType is not defined")
	}
	plane.setArtifact(art)

	s.resolveProvenance(h, st, ck)

	// Member time bounds belong to the science product's plane.
	if product != "" && product == scienceProduct {
		for m, t := range st.memberTimes {
			plane.setMemberTime(m, t[0], t[1])
		}
	}

	return ck, st, nil
}

// checkDuplicate reports identity clashes for a composite observation.
// SANDBOX ingestions may shadow anything.
func (s *Session) checkDuplicate(ctx context.Context, obsID string, ck *validate.Checker) error {
	if s.cfg.Collection == "SANDBOX" {
		return nil
	}
	colls, err := s.cat.CollectionsWithObservationID(ctx, obsID)
	if err != nil {
		return fmt.Errorf("querying collections holding %s: %w", obsID, err)
	}
	for _, coll := range colls {
		switch {
		case coll == s.cfg.Collection:
			if !s.cfg.Replace {
				ck.Errorf("must specify --replace if observationID = %q already exists in collection = %q", obsID, coll)
			}
		case coll == "JCMTLS" || coll == "JCMTUSER":
			ck.Warnf("observationID = %q is also in use in collection = %q", obsID, coll)
		default:
			ck.Errorf("observationID = %q is also in use in collection = %q", obsID, coll)
		}
	}
	return nil
}

// normalizeRunID translates the DPRCINST header into a canonical recipe
// instance identifier: JAC job numbers zero-pad to nine digits, legacy
// hexadecimal identifiers convert to decimal, integers format as
// decimal, and anything else passes through verbatim.
func normalizeRunID(h fitsheader.Header) string {
	if v, ok := h["DPRCINST"].(string); ok {
		if m := jacInstancePattern.FindStringSubmatch(v); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return fmt.Sprintf("jac-%09d", n)
			}
		}
		if hexInstancePattern.MatchString(v) {
			if n, err := strconv.ParseInt(v[2:], 16, 64); err == nil {
				return strconv.FormatInt(n, 10)
			}
		}
		return v
	}
	if n, ok := h.Int("DPRCINST"); ok {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// mjdEpoch anchors MJD 40587 at the Unix epoch.
const mjdEpoch = 40587.0

func timeToMJD(t time.Time) float64 {
	return float64(t.Unix())/86400.0 + mjdEpoch
}

func mjdToTime(mjd float64) time.Time {
	return time.Unix(int64((mjd-mjdEpoch)*86400.0), 0).UTC()
}

// isBlank reports a keyword present in the header without a value.
func isBlank(h fitsheader.Header, key string) bool {
	return h.Has(key) && !h.IsDefined(key)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
