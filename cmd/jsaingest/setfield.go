package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/ingest"
	"github.com/jsaops/jsaingest/internal/ui"
)

var setfieldCmd = &cobra.Command{
	Use:   "setfield",
	Short: "Update release dates or provenance references by recipe instance",
	Long: `Update every archived plane produced by one recipe instance.

The catalog is queried for the planes whose provenance carries the given
run identifier; each owning observation is read, updated and written
back. A release date sets the plane data and metadata release and the
observation metadata release; a reference sets the plane provenance
reference.

Examples:
  jsaingest setfield --runid jac-000000123 --release-date 2026-09-01
  jsaingest setfield --runid jac-000000123 --reference https://doi.org/10.1093/mnras/stx1093
  jsaingest setfield --runid jac-000000123 --release-date 20260901 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetField(cmd)
	},
}

func init() {
	setfieldCmd.Flags().String("runid", "", "Recipe instance identifier (required)")
	setfieldCmd.Flags().String("release-date", "", "Release date to set, YYYYMMDD or YYYY-MM-DD")
	setfieldCmd.Flags().String("reference", "", "Provenance reference URL to set")
	setfieldCmd.Flags().Bool("dry-run", false, "Report what would change without writing to the archive")
	_ = setfieldCmd.MarkFlagRequired("runid")
	rootCmd.AddCommand(setfieldCmd)
}

func runSetField(cmd *cobra.Command) error {
	runID, _ := cmd.Flags().GetString("runid")
	reference, _ := cmd.Flags().GetString("reference")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var releaseDate time.Time
	if s, _ := cmd.Flags().GetString("release-date"); s != "" {
		var err error
		releaseDate, err = ingest.ParseReleaseDate(s)
		if err != nil {
			return err
		}
	}

	log := newLogger(os.Stderr)
	cat, closeCat, err := openCatalog(rootCtx)
	if err != nil {
		return err
	}
	defer closeCat()
	rep, err := openRepository()
	if err != nil {
		return err
	}
	s, err := newSession(log, cat, rep, cfg.Ingest.Collection, dryRun, false)
	if err != nil {
		return err
	}

	updated, err := s.SetField(rootCtx, ingest.SetFieldOptions{
		RunID:       runID,
		ReleaseDate: releaseDate,
		Reference:   reference,
	})
	if err != nil {
		return err
	}

	if quietFlag {
		return nil
	}
	if updated == 0 {
		fmt.Printf("%s no archived planes carry runID %s\n", ui.RenderWarn(ui.IconWarn), runID)
		return nil
	}
	msg := fmt.Sprintf("updated %d planes for runID %s", updated, runID)
	if dryRun {
		msg += " (dry run, nothing written)"
	}
	fmt.Printf("%s %s\n", ui.RenderPass(ui.IconPass), msg)
	return nil
}
