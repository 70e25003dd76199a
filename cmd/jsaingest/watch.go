package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/telemetry"
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a drop directory and ingest new header files",
	Long: `Watch the given directory and ingest header files as the pipelines
drop them.

File events are debounced so a multi-file transfer lands as one batch.
Files already present when the watch starts are ingested first; use
--since to skip stale ones. A file that fails its checks is reported
once and retried only when it is written again. Press Ctrl+C to stop.

Examples:
  jsaingest watch /jsa/transfer/out/
  jsaingest watch --since yesterday --debounce 5s /jsa/transfer/out/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args[0])
	},
}

func init() {
	watchCmd.Flags().String("collection", "", "Target collection (default from config: JCMT)")
	watchCmd.Flags().Bool("dry-run", false, "Report what would change without writing to the archive")
	watchCmd.Flags().Bool("replace", false, "Permit re-ingestion of observations already in the target collection")
	watchCmd.Flags().String("workdir", "", "Working directory holding the ingestion lock (default from config)")
	watchCmd.Flags().String("since", "", "Skip files last modified before this date (absolute or natural language)")
	watchCmd.Flags().Duration("debounce", 2*time.Second, "Quiet period before a batch of dropped files is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, dir string) error {
	collection, err := resolveCollection(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	replace, _ := cmd.Flags().GetBool("replace")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("reading watch directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	lock, err := acquireWorkdirLock(cmd)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := telemetry.Init(rootCtx, "jsaingest", Version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: telemetry disabled: %v\n", err)
	}
	defer telemetry.Shutdown(rootCtx)

	// done remembers paths already ingested cleanly so repeated events
	// do not re-ingest them.
	done := map[string]bool{}

	ingestPending := func(paths []string) {
		sort.Strings(paths)
		res, logPath, err := runBatch(rootCtx, "watch", paths, collection, dryRun, replace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: batch failed: %v\n", err)
			return
		}
		byBase := make(map[string]string, len(paths))
		for _, p := range paths {
			byBase[filepath.Base(p)] = p
		}
		for _, fr := range res.Files {
			if len(fr.Errors) == 0 {
				done[byBase[fr.Name]] = true
			}
		}
		printBatchSummary(res, collection, logPath)
	}

	// Ingest whatever is already in the directory.
	initial, err := collectHeaderPaths([]string{dir})
	if err != nil {
		return err
	}
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		cutoff, err := parseSince(s)
		if err != nil {
			return err
		}
		var dropped int
		initial, dropped = filterSince(initial, cutoff)
		if dropped > 0 && !quietFlag {
			fmt.Printf("skipping %d files older than %s\n", dropped, cutoff.Format("2006-01-02 15:04"))
		}
	}
	if len(initial) > 0 {
		ingestPending(initial)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	fmt.Fprintf(os.Stderr, "Watching %s... (Press Ctrl+C to exit)\n", dir)

	pending := map[string]bool{}
	batchReady := make(chan struct{}, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-rootCtx.Done():
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isHeaderFile(event.Name) || done[event.Name] {
				continue
			}
			pending[event.Name] = true
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case batchReady <- struct{}{}:
				default:
				}
			})
		case <-batchReady:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			pending = map[string]bool{}
			ingestPending(batch)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}
