package fitsheader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// File pairs a header with the path it was loaded from.
type File struct {
	Path   string
	Header Header
}

// Base returns the file's base name, the batch ordering key.
func (f File) Base() string { return filepath.Base(f.Path) }

// Load reads one header dump. YAML sidecars (.yaml/.yml) decode as a
// keyword/value map; anything else parses as FITS card text.
func Load(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading header %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(path, data)
	default:
		return parseCards(path, string(data))
	}
}

// LoadSet loads many header dumps, parsing up to parallel files at once, and
// returns the set sorted by base name (ties broken by full path). The sort
// order is the batch processing order: the archive's file naming convention
// places raw-like products before the derived products that consume them.
func LoadSet(ctx context.Context, paths []string, parallel int) ([]File, error) {
	if parallel < 1 {
		parallel = 1
	}
	files := make([]File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := Load(path)
			if err != nil {
				return err
			}
			files[i] = File{Path: path, Header: h}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		if bi, bj := files[i].Base(), files[j].Base(); bi != bj {
			return bi < bj
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func parseYAML(path string, data []byte) (Header, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing header %s: %w", path, err)
	}
	h := make(Header, len(raw))
	for k, v := range raw {
		val, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("header %s keyword %s: %w", path, k, err)
		}
		h[strings.ToUpper(strings.TrimSpace(k))] = val
	}
	return h, nil
}

var keywordPattern = regexp.MustCompile(`^[A-Z0-9_-]{1,8}$`)

// parseCards reads FITS card text: one "KEYWORD = value / comment" card per
// line, END terminating, COMMENT/HISTORY/blank lines skipped.
func parseCards(path, text string) (Header, error) {
	h := Header{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	for line := 1; scanner.Scan(); line++ {
		card := scanner.Text()
		if len(card) > 80 {
			card = card[:80]
		}
		trimmed := strings.TrimRight(card, " ")
		if trimmed == "" || trimmed == "END" {
			if trimmed == "END" {
				break
			}
			continue
		}
		eq := strings.Index(card, "=")
		if eq < 0 {
			// COMMENT, HISTORY, or a blank keyword card.
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(card[:eq]))
		if !keywordPattern.MatchString(key) {
			continue
		}
		val, err := parseCardValue(card[eq+1:])
		if err != nil {
			return nil, fmt.Errorf("header %s line %d: %w", path, line, err)
		}
		h[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading header %s: %w", path, err)
	}
	return h, nil
}

func parseCardValue(rest string) (Value, error) {
	rest = strings.TrimLeft(rest, " ")
	if rest == "" || strings.HasPrefix(rest, "/") {
		return Undefined, nil
	}
	if rest[0] == '\'' {
		// Quoted string; '' inside is an escaped quote.
		var b strings.Builder
		i := 1
		for ; i < len(rest); i++ {
			if rest[i] != '\'' {
				b.WriteByte(rest[i])
				continue
			}
			if i+1 < len(rest) && rest[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			break
		}
		if i >= len(rest) {
			return nil, fmt.Errorf("unterminated string %q", rest)
		}
		// FITS pads short strings with trailing blanks inside the quotes.
		return strings.TrimRight(b.String(), " "), nil
	}
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	token := strings.TrimSpace(rest)
	switch token {
	case "":
		return Undefined, nil
	case "T":
		return true, nil
	case "F":
		return false, nil
	}
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, nil
	}
	return token, nil
}
