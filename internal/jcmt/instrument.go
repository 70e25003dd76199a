package jcmt

import (
	"fmt"
	"strings"
)

// InstrumentName composes the CAOM-2 instrument name for an observation
// from its frontend, backend, and in-beam hardware. Heterodyne instruments
// are named frontend-backend ("HARP-ACSIS"); continuum detectors stand
// alone ("SCUBA-2"); in-beam polarimeters and the FTS prefix the name
// ("POL2-SCUBA-2", "FTS2-SCUBA-2").
//
// A name is always returned, substituting UNKNOWN for missing components.
// The error reports combinations outside the permitted tables so callers
// can record a warning without abandoning the observation.
func InstrumentName(frontend, backend, inbeam string) (string, error) {
	fe := strings.ToUpper(strings.TrimSpace(frontend))
	be := NormalizeBackend(backend)
	ib := strings.ToUpper(inbeam)

	var parts []string
	if strings.Contains(ib, "POL") {
		if fe == "SCUBA-2" {
			parts = append(parts, "POL2")
		} else {
			parts = append(parts, "POL")
		}
	}
	if strings.Contains(ib, "FTS2") {
		parts = append(parts, "FTS2")
	}

	if fe == "" {
		fe = "UNKNOWN"
	}
	if be == "" {
		be = "UNKNOWN"
	}
	parts = append(parts, fe)

	var err error
	if tbl, ok := tables.Backends[be]; ok && IsHeterodyne(be) {
		parts = append(parts, be)
		if !contains(tbl.Frontends, fe) {
			err = fmt.Errorf("frontend %q is not a permitted receiver for backend %q", fe, be)
		}
	} else if !IsContinuum(fe) {
		err = fmt.Errorf("unrecognized instrument: frontend %q with backend %q", fe, be)
	}
	return strings.Join(parts, "-"), err
}
