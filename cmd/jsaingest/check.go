package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/telemetry"
)

var checkCmd = &cobra.Command{
	Use:   "check <files or directories...>",
	Short: "Validate header files without writing to the archive",
	Long: `Run the full ingestion checks on the given header files and report
every finding without writing to or removing from the archive.

Identity derivation, header validation and catalog resolution all run
exactly as they would during ingestion, so a clean check means the batch
will ingest cleanly.

Examples:
  jsaingest check /jsa/transfer/out/
  jsaingest check --replace jcmts20100311_00022_850_reduced001_nit_000.fits`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, args)
	},
}

func init() {
	checkCmd.Flags().String("collection", "", "Target collection (default from config: JCMT)")
	checkCmd.Flags().Bool("replace", false, "Check as a re-ingestion of existing observations")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	collection, err := resolveCollection(cmd)
	if err != nil {
		return err
	}
	replace, _ := cmd.Flags().GetBool("replace")

	paths, err := collectHeaderPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no header files to check")
		return nil
	}

	if err := telemetry.Init(rootCtx, "jsaingest", Version); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: telemetry disabled: %v\n", err)
	}
	defer telemetry.Shutdown(rootCtx)

	res, logPath, err := runBatch(rootCtx, "check", paths, collection, true, replace)
	if err != nil {
		return err
	}
	printFileFindings(res)
	printBatchSummary(res, collection, logPath)
	if res.HasErrors() {
		return fmt.Errorf("%d of %d files failed checks", res.FilesWithErrors, len(res.Files))
	}
	return nil
}
