package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jsaops/jsaingest/internal/ingest"
)

// logArtifact is the per-batch log file. The batch logger writes to it
// alongside stderr, and at batch end the file is renamed to flag its
// disposition so operators can spot failed runs in a directory listing.
type logArtifact struct {
	f    *os.File
	path string
}

// logDir returns where log artifacts and run reports land.
func logDir() string {
	if cfg.Ingest.LogDir != "" {
		return cfg.Ingest.LogDir
	}
	if cfg.Ingest.Workdir != "" {
		return cfg.Ingest.Workdir
	}
	return "."
}

// openLogArtifact creates <dir>/<command>_<UTC stamp>.log.
func openLogArtifact(dir, command string) (*logArtifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", command, stamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating log artifact: %w", err)
	}
	return &logArtifact{f: f, path: path}, nil
}

func (a *logArtifact) Writer() *os.File { return a.f }

// Finalize closes the artifact and renames it with an _ERRORS or
// _WARNINGS suffix when the batch disposition warrants. Returns the
// final path.
func (a *logArtifact) Finalize(hasErrors, hasWarnings bool) string {
	_ = a.f.Close()
	suffix := ""
	switch {
	case hasErrors:
		suffix = "_ERRORS"
	case hasWarnings:
		suffix = "_WARNINGS"
	}
	if suffix == "" {
		return a.path
	}
	final := strings.TrimSuffix(a.path, ".log") + suffix + ".log"
	if err := os.Rename(a.path, final); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not rename log artifact: %v\n", err)
		return a.path
	}
	return final
}

// writeRunReport writes the markdown run report next to the log artifact
// and returns its path.
func writeRunReport(logPath, command, collection string, res *ingest.Result) (string, error) {
	path := strings.TrimSuffix(logPath, ".log") + "_report.md"

	var b strings.Builder
	fmt.Fprintf(&b, "# jsaingest %s report\n\n", command)
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Collection: %s\n", collection)
	fmt.Fprintf(&b, "- Files examined: %d\n", len(res.Files))
	fmt.Fprintf(&b, "- Files with errors: %d\n", res.FilesWithErrors)
	fmt.Fprintf(&b, "- Files with warnings: %d\n", res.FilesWithWarnings)
	fmt.Fprintf(&b, "- Observations stored: %d\n", res.ObservationsStored)
	fmt.Fprintf(&b, "- Observations removed: %d\n", res.ObservationsRemoved)
	fmt.Fprintf(&b, "- Planes removed: %d\n", res.PlanesRemoved)
	fmt.Fprintf(&b, "- Unresolved provenance inputs: %d\n", res.UnresolvedInputs)
	if res.EarliestObsID != "" {
		fmt.Fprintf(&b, "- Earliest member: %s (MJD %.5f)\n", res.EarliestObsID, res.EarliestMJD)
	}
	fmt.Fprintf(&b, "- Log: %s\n", filepath.Base(logPath))

	b.WriteString("\n## Files\n\n")
	for _, fr := range res.Files {
		switch {
		case len(fr.Errors) > 0:
			fmt.Fprintf(&b, "- **%s** — rejected\n", fr.Name)
		case len(fr.Warnings) > 0:
			fmt.Fprintf(&b, "- **%s** — ingested with warnings\n", fr.Name)
		default:
			fmt.Fprintf(&b, "- %s — ingested\n", fr.Name)
		}
	}

	wroteHeader := false
	for _, fr := range res.Files {
		if len(fr.Errors) == 0 && len(fr.Warnings) == 0 {
			continue
		}
		if !wroteHeader {
			b.WriteString("\n## Findings\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "\n### %s\n\n", fr.Name)
		for _, msg := range fr.Errors {
			fmt.Fprintf(&b, "- error: %s\n", msg)
		}
		for _, msg := range fr.Warnings {
			fmt.Fprintf(&b, "- warning: %s\n", msg)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing run report: %w", err)
	}
	return path, nil
}
