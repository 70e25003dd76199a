package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Render an ingestion run report",
	Long: `Render the newest run report from the log directory, or the named
report file, with markdown styling. Output goes through a pager when
stdout is a terminal.

Examples:
  jsaingest report
  jsaingest report /jsa/log/ingest_20260823T041500_ERRORS_report.md
  jsaingest report --no-pager`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, args)
	},
}

func init() {
	reportCmd.Flags().Bool("no-pager", false, "Print directly instead of paging")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		var err error
		path, err = newestReport(logDir())
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 - operator-chosen report file
	if err != nil {
		return fmt.Errorf("reading report %s: %w", path, err)
	}

	noPager, _ := cmd.Flags().GetBool("no-pager")
	return ui.ToPager(ui.RenderMarkdown(string(data)), ui.PagerOptions{NoPager: noPager})
}

// newestReport returns the most recently modified *_report.md in dir.
func newestReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_report.md"))
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no run reports in %s", dir)
	}
	return newest, nil
}
