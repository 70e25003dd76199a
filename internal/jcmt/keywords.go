package jcmt

import (
	"fmt"
	"sort"
	"strings"
)

// Strictness selects how much of the instrument configuration must be
// present before it can be validated. Raw data from the telescope carries
// the full configuration; standard-pipeline products inherit most of it;
// externally processed products may omit nearly everything.
type Strictness string

const (
	// Raw requires the complete configuration written by the telescope.
	Raw Strictness = "raw"
	// StdPipe relaxes the keywords the standard pipeline does not carry
	// forward, such as the switching mode.
	StdPipe Strictness = "stdpipe"
	// External only validates whatever keywords happen to be present.
	External Strictness = "external"
)

// InstrumentKeywords validates the instrument configuration for one
// subsystem and flattens it into the keyword list recorded on the CAOM-2
// Instrument. The frontend and backend come from their own headers; config
// holds the remaining configuration keywords (inbeam, sideband,
// sideband_filter, switching_mode, subsys_bwmode) keyed by lower-case name.
//
// The returned problems describe every defect found; keywords is nil unless
// problems is empty. INBEAM values are split on whitespace and the shutter,
// which is in the beam for every dark, is dropped from the keyword list.
func InstrumentKeywords(strictness Strictness, frontend, backend string, config map[string]string) (keywords, problems []string) {
	switch strictness {
	case Raw, StdPipe, External:
	default:
		return nil, []string{fmt.Sprintf("unknown strictness %q", strictness)}
	}

	be := NormalizeBackend(backend)
	fe := strings.ToUpper(strings.TrimSpace(frontend))

	var tbl backendTable
	haveTable := false
	if be == "" {
		if strictness != External {
			problems = append(problems, "backend is not defined")
		}
	} else if t, ok := tables.Backends[be]; ok {
		tbl = t
		haveTable = true
	} else {
		problems = append(problems, fmt.Sprintf("backend %q is not one of the permitted backends", be))
	}

	if haveTable {
		if fe == "" {
			if strictness != External {
				problems = append(problems, "frontend is not defined")
			}
		} else if !contains(tbl.Frontends, fe) {
			problems = append(problems,
				fmt.Sprintf("frontend %q is not permitted for backend %q", fe, be))
		}

		if IsHeterodyne(be) {
			problems = append(problems, checkHeterodyne(strictness, be, tbl, config)...)
		} else {
			problems = append(problems, checkContinuum(be, config)...)
		}

		if sw, ok := config["switching_mode"]; ok {
			if v := strings.ToUpper(strings.TrimSpace(sw)); !contains(tbl.SwitchingModes, v) {
				problems = append(problems,
					fmt.Sprintf("switching_mode %q is not permitted for backend %q", v, be))
			}
		} else if strictness == Raw {
			problems = append(problems, "switching_mode is not defined")
		}
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return flattenKeywords(config), nil
}

func checkHeterodyne(strictness Strictness, be string, tbl backendTable, config map[string]string) []string {
	var problems []string
	if sb, ok := config["sideband"]; ok {
		if v := strings.ToUpper(strings.TrimSpace(sb)); !contains(tbl.Sidebands, v) {
			problems = append(problems,
				fmt.Sprintf("sideband %q is not permitted for backend %q", v, be))
		}
	} else if strictness == Raw {
		problems = append(problems, "sideband is not defined")
	}
	if sf, ok := config["sideband_filter"]; ok {
		if v := strings.ToUpper(strings.TrimSpace(sf)); !contains(tbl.SidebandFilters, v) {
			problems = append(problems,
				fmt.Sprintf("sideband_filter %q is not permitted for backend %q", v, be))
		}
	} else if strictness != External {
		problems = append(problems, "sideband_filter is not defined")
	}
	return problems
}

// Continuum backends have no sidebands, so sideband keywords on a SCUBA-2
// file mean the headers were copied from the wrong template.
func checkContinuum(be string, config map[string]string) []string {
	var problems []string
	for _, key := range []string{"sideband", "sideband_filter", "subsys_bwmode"} {
		if _, ok := config[key]; ok {
			problems = append(problems,
				fmt.Sprintf("%s is not permitted for backend %q", key, be))
		}
	}
	return problems
}

func flattenKeywords(config map[string]string) []string {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var keywords []string
	for _, k := range keys {
		if k == "inbeam" {
			for _, part := range strings.Fields(config[k]) {
				if v := strings.ToUpper(part); v != "SHUTTER" {
					keywords = append(keywords, v)
				}
			}
			continue
		}
		keywords = append(keywords, strings.ToUpper(strings.TrimSpace(config[k])))
	}
	return keywords
}
