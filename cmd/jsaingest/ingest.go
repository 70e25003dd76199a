package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/config"
	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/ingest"
	"github.com/jsaops/jsaingest/internal/lockfile"
	"github.com/jsaops/jsaingest/internal/telemetry"
)

// loadParallelism bounds concurrent header parsing; ingestion itself is
// single-threaded.
const loadParallelism = 4

var ingestCmd = &cobra.Command{
	Use:   "ingest <files or directories...>",
	Short: "Ingest reduced header files into the archive",
	Long: `Ingest the given header dump files into the CAOM-2 archive.

Directory arguments are scanned for header files (.fits, .fit, .hdr,
.yaml, .yml). The batch is processed in file name order, every file is
checked and resolved against the catalog, and the assembled observation
records are written to the repository. Files that fail a check are
reported and skipped.

Examples:
  jsaingest ingest /jsa/transfer/out/
  jsaingest ingest --collection JCMTLS --replace cls-dr1-*.fits
  jsaingest ingest --dry-run --since "2 days ago" /jsa/transfer/out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(rootCtx, cmd, args)
	},
}

func init() {
	ingestCmd.Flags().String("collection", "", "Target collection (default from config: JCMT)")
	ingestCmd.Flags().Bool("dry-run", false, "Report what would change without writing to the archive")
	ingestCmd.Flags().Bool("replace", false, "Permit re-ingestion of observations already in the target collection")
	ingestCmd.Flags().String("workdir", "", "Working directory holding the ingestion lock (default from config)")
	ingestCmd.Flags().String("since", "", "Only ingest files modified since this date (absolute or natural language)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, cmd *cobra.Command, args []string) error {
	collection, err := resolveCollection(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	replace, _ := cmd.Flags().GetBool("replace")

	paths, err := collectHeaderPaths(args)
	if err != nil {
		return err
	}
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		cutoff, err := parseSince(s)
		if err != nil {
			return err
		}
		var dropped int
		paths, dropped = filterSince(paths, cutoff)
		if dropped > 0 && !quietFlag {
			fmt.Printf("skipping %d files older than %s\n", dropped, cutoff.Format("2006-01-02 15:04"))
		}
	}
	if len(paths) == 0 {
		fmt.Println("no header files to ingest")
		return nil
	}

	lock, err := acquireWorkdirLock(cmd)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := telemetry.Init(ctx, "jsaingest", Version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: telemetry disabled: %v\n", err)
	}
	defer telemetry.Shutdown(ctx)

	res, logPath, err := runBatch(ctx, "ingest", paths, collection, dryRun, replace)
	if err != nil {
		return err
	}
	printBatchSummary(res, collection, logPath)
	if res.HasErrors() {
		return fmt.Errorf("batch completed with %d rejected files, see %s", res.FilesWithErrors, logPath)
	}
	return nil
}

// runBatch processes one batch of header files through a fresh session,
// logging to stderr and a per-batch log artifact, and writes the run
// report. Returns the batch result and the final log artifact path.
func runBatch(ctx context.Context, command string, paths []string, collection string, dryRun, replace bool) (*ingest.Result, string, error) {
	art, err := openLogArtifact(logDir(), command)
	if err != nil {
		return nil, "", err
	}
	log := newLogger(io.MultiWriter(os.Stderr, art.Writer()))

	res, err := func() (*ingest.Result, error) {
		cat, closeCat, err := openCatalog(ctx)
		if err != nil {
			return nil, err
		}
		defer closeCat()
		rep, err := openRepository()
		if err != nil {
			return nil, err
		}
		s, err := newSession(log, cat, rep, collection, dryRun, replace)
		if err != nil {
			return nil, err
		}
		files, err := fitsheader.LoadSet(ctx, paths, loadParallelism)
		if err != nil {
			return nil, err
		}
		return s.Run(ctx, files)
	}()
	if err != nil {
		log.Error("batch aborted", "error", err)
		art.Finalize(true, false)
		return nil, "", err
	}

	final := art.Finalize(res.HasErrors(), res.HasWarnings())
	if reportPath, err := writeRunReport(final, command, collection, res); err != nil {
		log.Warn("could not write run report", "error", err)
	} else {
		log.Info("run report written", "path", reportPath)
	}
	return res, final, nil
}

// resolveCollection applies the flag-over-config priority and validates
// the result.
func resolveCollection(cmd *cobra.Command) (string, error) {
	c, _ := cmd.Flags().GetString("collection")
	if c == "" {
		c = cfg.Ingest.Collection
	}
	if !config.ValidCollection(c) {
		return "", fmt.Errorf("invalid collection %q (valid: %s)", c, strings.Join(config.Collections, ", "))
	}
	return c, nil
}

// acquireWorkdirLock takes the non-blocking single-writer lock so two
// ingestion runs cannot interleave archive writes.
func acquireWorkdirLock(cmd *cobra.Command) (*lockfile.Lock, error) {
	workdir, _ := cmd.Flags().GetString("workdir")
	if workdir == "" {
		workdir = cfg.Ingest.Workdir
	}
	if workdir == "" {
		workdir = "."
	}
	lock, err := lockfile.Acquire(workdir, ".lock")
	if err != nil {
		if errors.Is(err, lockfile.ErrLockBusy) {
			return nil, fmt.Errorf("another ingestion run is active in %s", workdir)
		}
		return nil, err
	}
	return lock, nil
}
