package caom

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"
)

// AlgorithmExposure is the algorithm name of a simple (atomic) observation.
// Composite observations carry the association type that grouped them
// (night, project, public, ...).
const AlgorithmExposure = "exposure"

// Intent classifies why an observation was taken.
type Intent string

const (
	IntentScience     Intent = "science"
	IntentCalibration Intent = "calibration"
)

// CalibrationLevel is the CAOM-2 numeric calibration level of a plane.
type CalibrationLevel int

const (
	RawInstrumental CalibrationLevel = 0
	RawStandard     CalibrationLevel = 1
	Calibrated      CalibrationLevel = 2
	Product         CalibrationLevel = 3
)

// DataProductType describes the shape of the data in a plane.
type DataProductType string

const (
	TypeImage    DataProductType = "image"
	TypeSpectrum DataProductType = "spectrum"
	TypeCube     DataProductType = "cube"
	TypeCatalog  DataProductType = "catalog"
)

// ProductType classifies an artifact or part within a plane.
type ProductType string

const (
	PartScience     ProductType = "science"
	PartCalibration ProductType = "calibration"
	PartPreview     ProductType = "preview"
	PartInfo        ProductType = "info"
	PartCatalog     ProductType = "catalog"
	PartNoise       ProductType = "noise"
	PartWeight      ProductType = "weight"
	PartAuxiliary   ProductType = "auxiliary"
)

// Observation is one archive record. Planes are kept sorted by productID so
// the serialized form is deterministic.
type Observation struct {
	XMLName       xml.Name        `xml:"observation"`
	Collection    string          `xml:"collection"`
	ObservationID string          `xml:"observationID"`
	Algorithm     string          `xml:"algorithm"`
	Type          string          `xml:"type,omitempty"`
	Intent        Intent          `xml:"intent,omitempty"`
	MetaRelease   *time.Time      `xml:"metaRelease,omitempty"`
	Proposal      *Proposal       `xml:"proposal,omitempty"`
	Target        *Target         `xml:"target,omitempty"`
	Telescope     *Telescope      `xml:"telescope,omitempty"`
	Instrument    *Instrument     `xml:"instrument,omitempty"`
	Environment   *Environment    `xml:"environment,omitempty"`
	Members       []MemberElement `xml:"members>observationURI,omitempty"`
	Planes        []*Plane        `xml:"planes>plane,omitempty"`
}

// MemberElement is the serialized form of one membership reference.
type MemberElement struct {
	URI string `xml:",chardata"`
}

// Proposal carries the observing proposal attribution.
type Proposal struct {
	ID      string `xml:"id"`
	PI      string `xml:"pi,omitempty"`
	Project string `xml:"project,omitempty"`
	Title   string `xml:"title,omitempty"`
}

// Target describes what was observed.
type Target struct {
	Name     string          `xml:"name"`
	Type     string          `xml:"type,omitempty"`
	Standard *bool           `xml:"standard,omitempty"`
	Moving   *bool           `xml:"moving,omitempty"`
	Redshift *float64        `xml:"redshift,omitempty"`
	Position *TargetPosition `xml:"position,omitempty"`
}

// TargetPosition is the nominal pointing in a named coordinate system.
type TargetPosition struct {
	CoordSys string  `xml:"coordsys"`
	Equinox  float64 `xml:"equinox,omitempty"`
	RA       float64 `xml:"ra"`
	Dec      float64 `xml:"dec"`
}

// Telescope names the facility.
type Telescope struct {
	Name string `xml:"name"`
}

// Instrument names the receiver/backend combination with its keyword list.
type Instrument struct {
	Name     string   `xml:"name"`
	Keywords []string `xml:"keywords>keyword,omitempty"`
}

// Environment holds ambient conditions at the start of the observation.
type Environment struct {
	SeeingArcsec  *float64 `xml:"seeing,omitempty"`
	Humidity      *float64 `xml:"humidity,omitempty"`
	Elevation     *float64 `xml:"elevation,omitempty"`
	Tau           *float64 `xml:"tau,omitempty"`
	WavelengthTau *float64 `xml:"wavelengthTau,omitempty"`
	AmbientTemp   *float64 `xml:"ambientTemp,omitempty"`
}

// Plane is one data product within an observation.
type Plane struct {
	ProductID        string            `xml:"productID"`
	MetaRelease      *time.Time        `xml:"metaRelease,omitempty"`
	DataRelease      *time.Time        `xml:"dataRelease,omitempty"`
	DataProductType  DataProductType   `xml:"dataProductType,omitempty"`
	CalibrationLevel CalibrationLevel  `xml:"calibrationLevel"`
	Bandpass         string            `xml:"energy>bandpassName,omitempty"`
	Transition       *EnergyTransition `xml:"energy>transition,omitempty"`
	TimeBounds       *Interval         `xml:"time>bounds,omitempty"`
	Provenance       *Provenance       `xml:"provenance,omitempty"`
	Artifacts        []*Artifact       `xml:"artifacts>artifact,omitempty"`
}

// EnergyTransition identifies the spectral line a heterodyne plane targets.
type EnergyTransition struct {
	Species    string `xml:"species"`
	Transition string `xml:"transition"`
}

// SubInterval is one contiguous time range within an Interval.
type SubInterval struct {
	Lower float64 `xml:"lower"`
	Upper float64 `xml:"upper"`
}

// Interval is a plane's time coverage in MJD. Composite planes carry one
// sample per member exposure.
type Interval struct {
	Lower   float64       `xml:"lower"`
	Upper   float64       `xml:"upper"`
	Samples []SubInterval `xml:"samples>sample,omitempty"`
}

// Provenance records how a plane was produced and from what.
type Provenance struct {
	Name         string     `xml:"name"`
	Reference    string     `xml:"reference,omitempty"`
	Version      string     `xml:"version,omitempty"`
	Project      string     `xml:"project,omitempty"`
	Producer     string     `xml:"producer,omitempty"`
	RunID        string     `xml:"runID,omitempty"`
	LastExecuted *time.Time `xml:"lastExecuted,omitempty"`
	Inputs       []string   `xml:"inputs>planeURI,omitempty"`
}

// Artifact is one file belonging to a plane.
type Artifact struct {
	URI         string      `xml:"uri"`
	ProductType ProductType `xml:"productType,omitempty"`
	Parts       []Part      `xml:"parts>part,omitempty"`
}

// Part is one addressable piece of an artifact (a FITS extension).
type Part struct {
	Name        string      `xml:"name"`
	ProductType ProductType `xml:"productType,omitempty"`
}

// URI returns the observation's identity.
func (o *Observation) URI() ObservationURI {
	return ObservationURI{Collection: o.Collection, ObservationID: o.ObservationID}
}

// IsComposite reports whether the observation was built from members.
func (o *Observation) IsComposite() bool {
	return o.Algorithm != "" && o.Algorithm != AlgorithmExposure
}

// Plane returns the plane with the given productID, or nil.
func (o *Observation) Plane(productID string) *Plane {
	for _, p := range o.Planes {
		if p.ProductID == productID {
			return p
		}
	}
	return nil
}

// SetPlane inserts or replaces a plane, keeping Planes sorted by productID.
func (o *Observation) SetPlane(p *Plane) {
	for i, existing := range o.Planes {
		if existing.ProductID == p.ProductID {
			o.Planes[i] = p
			return
		}
	}
	o.Planes = append(o.Planes, p)
	sort.Slice(o.Planes, func(i, j int) bool {
		return o.Planes[i].ProductID < o.Planes[j].ProductID
	})
}

// RemovePlane deletes the plane with the given productID; it reports whether
// a plane was removed.
func (o *Observation) RemovePlane(productID string) bool {
	for i, p := range o.Planes {
		if p.ProductID == productID {
			o.Planes = append(o.Planes[:i], o.Planes[i+1:]...)
			return true
		}
	}
	return false
}

// ProductIDs returns the productIDs of all planes in sorted order.
func (o *Observation) ProductIDs() []string {
	ids := make([]string, 0, len(o.Planes))
	for _, p := range o.Planes {
		ids = append(ids, p.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// SetMembers replaces the membership list with the given URIs.
func (o *Observation) SetMembers(uris []ObservationURI) {
	o.Members = o.Members[:0]
	for _, u := range uris {
		o.Members = append(o.Members, MemberElement{URI: u.String()})
	}
}

// MemberURIs parses the membership list back into ObservationURIs.
// Malformed entries are skipped.
func (o *Observation) MemberURIs() []ObservationURI {
	uris := make([]ObservationURI, 0, len(o.Members))
	for _, m := range o.Members {
		if u, err := ParseObservationURI(m.URI); err == nil {
			uris = append(uris, u)
		}
	}
	return uris
}

// Validate checks that the record carries the minimum identity fields.
func (o *Observation) Validate() error {
	if o.Collection == "" {
		return fmt.Errorf("observation %q has no collection", o.ObservationID)
	}
	if o.ObservationID == "" {
		return fmt.Errorf("observation in collection %q has no observationID", o.Collection)
	}
	if o.Algorithm == "" {
		return fmt.Errorf("observation %s has no algorithm", o.URI())
	}
	for _, p := range o.Planes {
		if p.ProductID == "" {
			return fmt.Errorf("observation %s has a plane with no productID", o.URI())
		}
	}
	return nil
}

// Marshal serializes the record to the archive's XML form.
func Marshal(o *Observation) ([]byte, error) {
	out, err := xml.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling observation %s: %w", o.URI(), err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// Unmarshal parses the archive's XML form.
func Unmarshal(data []byte) (*Observation, error) {
	var o Observation
	if err := xml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing observation record: %w", err)
	}
	return &o, nil
}
