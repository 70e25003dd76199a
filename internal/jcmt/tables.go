// Package jcmt derives CAOM-2 identity and instrument metadata from the
// header keywords written by the JCMT acquisition and reduction systems.
// Everything in this package is a pure function of its inputs plus the
// permitted-value tables embedded from tables.toml, so the same file always
// derives the same observationID, productID, and instrument keywords.
package jcmt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed tables.toml
var tablesTOML []byte

type backendTable struct {
	Frontends       []string `toml:"frontends"`
	InBeam          []string `toml:"inbeam"`
	Sidebands       []string `toml:"sidebands"`
	SidebandFilters []string `toml:"sideband_filters"`
	SwitchingModes  []string `toml:"switching_modes"`
}

type instrumentTables struct {
	Continuum []string                `toml:"continuum"`
	Backends  map[string]backendTable `toml:"backends"`
	Filters   map[string]string       `toml:"filters"`
}

var tables instrumentTables

func init() {
	if err := toml.Unmarshal(tablesTOML, &tables); err != nil {
		panic(fmt.Sprintf("jcmt: parsing embedded tables.toml: %v", err))
	}
}

// NormalizeBackend maps the BACKEND header value to the canonical backend
// name. Raw AOS-C headers record the backend as "AOSC" without the hyphen.
func NormalizeBackend(backend string) string {
	b := strings.ToUpper(strings.TrimSpace(backend))
	if b == "AOSC" {
		return "AOS-C"
	}
	return b
}

// IsHeterodyne reports whether backend names one of the heterodyne
// spectrometers, as opposed to a continuum detector.
func IsHeterodyne(backend string) bool {
	switch NormalizeBackend(backend) {
	case "ACSIS", "DAS", "AOS-C":
		return true
	}
	return false
}

// IsContinuum reports whether frontend names a continuum detector.
func IsContinuum(frontend string) bool {
	return contains(tables.Continuum, strings.ToUpper(strings.TrimSpace(frontend)))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
