package config

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// SetKey sets a configuration value in the YAML file at path. It updates
// existing keys in place, uncommenting them if needed, and appends new
// keys at the end. The file is created if it does not exist.
func SetKey(path, key, value string) error {
	content, err := os.ReadFile(path) // #nosec G304 - controlled path from caller
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	newContent := updateYamlKey(string(content), key, value)

	if err := os.WriteFile(path, []byte(newContent), 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// updateYamlKey updates a key in yaml content, handling commented-out keys.
// If the key exists (commented or not), it is replaced in place; otherwise
// the new line is appended at the end.
func updateYamlKey(content, key string, value string) string {
	newLine := fmt.Sprintf("%s: %s", key, formatYamlValue(value))

	// Matches "key: value" or "# key: value" with optional leading whitespace.
	keyPattern := regexp.MustCompile(`^(\s*)(#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	found := false
	var result []string

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if !found && keyPattern.MatchString(line) {
			indent := keyPattern.FindStringSubmatch(line)[1]
			result = append(result, indent+newLine)
			found = true
		} else {
			result = append(result, line)
		}
	}

	if !found {
		if len(result) > 0 && result[len(result)-1] != "" {
			result = append(result, "")
		}
		result = append(result, newLine)
	}

	return strings.Join(result, "\n") + "\n"
}

// formatYamlValue formats a value appropriately for YAML.
func formatYamlValue(value string) string {
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return lower
	}
	if isNumeric(value) {
		return value
	}
	if needsQuoting(value) {
		return fmt.Sprintf("%q", value)
	}
	return value
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' && i == 0 {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func needsQuoting(s string) bool {
	special := []string{":", "#", "[", "]", "{", "}", ",", "&", "*", "!", "|", ">", "'", "\"", "%", "@", "`"}
	for _, c := range special {
		if strings.Contains(s, c) {
			return true
		}
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	return false
}
