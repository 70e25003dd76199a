package jcmt

import (
	"fmt"
	"strconv"
)

// Subsystem describes one heterodyne spectral subsystem of a raw
// observation, as recorded by the acquisition system.
type Subsystem struct {
	Number      int // subsystem number within the observation
	RestFreqGHz float64
	BWMode      string
	SpecID      int // spectral window id, shared by hybrid-mode subsystems
	HybridCount int // number of subsystems sharing SpecID
}

var scuba2RawProducts = map[string]string{
	"450": "raw-450um",
	"850": "raw-850um",
}

// RawProductIDs maps each subsystem number of a raw observation to its
// plane productID. SCUBA-2 always observes the same two filters, so its
// map is static and subsystems is ignored. Heterodyne observations need
// the subsystem rows recorded at acquisition; hybrid-mode subsystems
// sharing a spectral window collapse onto a single "raw-hybrid" productID
// keyed by the spectral window id rather than the subsystem number.
func RawProductIDs(backend string, subsystems []Subsystem) (map[string]string, error) {
	if NormalizeBackend(backend) == "SCUBA-2" {
		ids := make(map[string]string, len(scuba2RawProducts))
		for k, v := range scuba2RawProducts {
			ids[k] = v
		}
		return ids, nil
	}
	if len(subsystems) == 0 {
		return nil, fmt.Errorf("no spectral subsystems recorded for backend %q", backend)
	}
	ids := make(map[string]string, len(subsystems))
	for _, ss := range subsystems {
		product := "raw"
		if ss.HybridCount > 1 {
			product = "raw-hybrid"
		}
		id, err := ProductID(backend, product, ProductOptions{
			RestFreqHz: ss.RestFreqGHz * 1.0e9,
			BWMode:     ss.BWMode,
			SubsysNr:   strconv.Itoa(ss.SpecID),
		})
		if err != nil {
			return nil, err
		}
		ids[strconv.Itoa(ss.Number)] = id
	}
	return ids, nil
}
