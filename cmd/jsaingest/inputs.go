package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// headerExtensions are the file forms the pipelines drop: FITS header
// dumps and YAML sidecars.
var headerExtensions = map[string]bool{
	".fits": true,
	".fit":  true,
	".hdr":  true,
	".yaml": true,
	".yml":  true,
}

func isHeaderFile(name string) bool {
	return headerExtensions[strings.ToLower(filepath.Ext(name))]
}

// collectHeaderPaths expands command arguments into header dump paths.
// Directory arguments are scanned one level deep; explicit file
// arguments are taken as given.
func collectHeaderPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isHeaderFile(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// filterSince drops files last modified before the cutoff and returns
// the survivors plus the number dropped.
func filterSince(paths []string, cutoff time.Time) ([]string, int) {
	if cutoff.IsZero() {
		return paths, 0
	}
	kept := paths[:0]
	dropped := 0
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.ModTime().Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}

// parseSince accepts absolute dates (2026-08-01, 20260801, RFC 3339) and
// natural language ("2 days ago", "last monday").
func parseSince(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --since %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", s)
	}
	return r.Time, nil
}
