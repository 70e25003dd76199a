package main

import (
	"fmt"

	"github.com/jsaops/jsaingest/internal/ingest"
	"github.com/jsaops/jsaingest/internal/ui"
)

// printBatchSummary writes the styled batch disposition to stdout.
func printBatchSummary(res *ingest.Result, collection, logPath string) {
	if quietFlag {
		return
	}
	fmt.Println(ui.RenderSeparator())
	switch {
	case res.HasErrors():
		fmt.Printf("%s %s\n", ui.RenderFail(ui.IconFail),
			ui.RenderFail(fmt.Sprintf("%d of %d files rejected", res.FilesWithErrors, len(res.Files))))
	case res.HasWarnings():
		fmt.Printf("%s %s\n", ui.RenderWarn(ui.IconWarn),
			ui.RenderWarn(fmt.Sprintf("%d files ingested, %d with warnings", len(res.Files), res.FilesWithWarnings)))
	default:
		fmt.Printf("%s %s\n", ui.RenderPass(ui.IconPass),
			ui.RenderPass(fmt.Sprintf("%d files ingested", len(res.Files))))
	}
	fmt.Printf("  collection:           %s\n", collection)
	fmt.Printf("  observations stored:  %d\n", res.ObservationsStored)
	fmt.Printf("  observations removed: %d\n", res.ObservationsRemoved)
	fmt.Printf("  planes removed:       %d\n", res.PlanesRemoved)
	if res.UnresolvedInputs > 0 {
		fmt.Printf("  unresolved inputs:    %s\n", ui.RenderWarn(fmt.Sprintf("%d", res.UnresolvedInputs)))
	}
	if res.EarliestObsID != "" {
		fmt.Printf("  earliest member:      %s (MJD %.5f)\n", res.EarliestObsID, res.EarliestMJD)
	}
	if logPath != "" {
		fmt.Println(ui.RenderMuted("  log: " + logPath))
	}
}

// printFileFindings lists each file's disposition with its messages.
func printFileFindings(res *ingest.Result) {
	if quietFlag {
		return
	}
	for _, fr := range res.Files {
		switch {
		case len(fr.Errors) > 0:
			fmt.Printf("%s %s\n", ui.RenderFail(ui.IconFail), fr.Name)
		case len(fr.Warnings) > 0:
			fmt.Printf("%s %s\n", ui.RenderWarn(ui.IconWarn), fr.Name)
		default:
			fmt.Printf("%s %s\n", ui.RenderPass(ui.IconPass), fr.Name)
			continue
		}
		for _, msg := range fr.Errors {
			fmt.Printf("    %s\n", ui.RenderFail("error: "+msg))
		}
		for _, msg := range fr.Warnings {
			fmt.Printf("    %s\n", ui.RenderWarn("warning: "+msg))
		}
	}
}
