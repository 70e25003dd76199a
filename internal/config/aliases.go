package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadRunIDAliases reads the run identifier mapping file. Each line maps a
// processing job back to the identifier an earlier system stamped into
// provenance_runID:
//
//	<old_run_id> <job_number> [comment...]
//
// The returned map is keyed by the canonical jac-%09d form of the job
// number. Blank lines and lines starting with '#' are ignored. It returns
// the mapping, the count of skipped (corrupt) lines, and any error; a
// missing file yields an empty mapping.
func LoadRunIDAliases(path string) (map[string]string, int, error) {
	f, err := os.Open(path) // #nosec G304 - controlled path from config
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), 0, nil
		}
		return nil, 0, fmt.Errorf("failed to open run id alias file: %w", err)
	}
	defer f.Close()

	aliases := make(map[string]string)
	skipped := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			fmt.Fprintf(os.Stderr, "Warning: skipping line %d in run id alias file: want <old_run_id> <job_number>\n", lineNo)
			skipped++
			continue
		}
		job, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping line %d in run id alias file: bad job number %q\n", lineNo, fields[1])
			skipped++
			continue
		}

		// Last write wins for duplicate job numbers.
		aliases[fmt.Sprintf("jac-%09d", job)] = fields[0]
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("error reading run id alias file: %w", err)
	}

	return aliases, skipped, nil
}
