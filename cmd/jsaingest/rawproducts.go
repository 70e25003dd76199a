package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/jcmt"
)

var rawproductsCmd = &cobra.Command{
	Use:   "rawproducts <observationID>",
	Short: "Print the raw plane product IDs of an observation",
	Long: `Map each subsystem of a raw observation to the plane productID its
data lands in.

Heterodyne observations need the spectral subsystem rows recorded at
acquisition, so the catalog is queried; SCUBA-2 always observes the same
two filters and needs no lookup.

Examples:
  jsaingest rawproducts acsis_00026_20150403T065049
  jsaingest rawproducts --backend SCUBA-2 scuba2_22_20100311T054059`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRawProducts(cmd, args[0])
	},
}

func init() {
	rawproductsCmd.Flags().String("backend", "ACSIS", "Acquisition backend (SCUBA-2, ACSIS, DAS, AOSC)")
	rootCmd.AddCommand(rawproductsCmd)
}

func runRawProducts(cmd *cobra.Command, obsID string) error {
	backend, _ := cmd.Flags().GetString("backend")

	var subsystems []jcmt.Subsystem
	if jcmt.NormalizeBackend(backend) != "SCUBA-2" {
		cat, closeCat, err := openCatalog(rootCtx)
		if err != nil {
			return err
		}
		defer closeCat()
		subsystems, err = cat.HeterodyneSubsystems(rootCtx, backend, obsID)
		if err != nil {
			return err
		}
	}

	ids, err := jcmt.RawProductIDs(backend, subsystems)
	if err != nil {
		return fmt.Errorf("deriving raw products of %s: %w", obsID, err)
	}

	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		if erri == nil && errj == nil {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Printf("%-8s %s\n", k, ids[k])
	}
	return nil
}
