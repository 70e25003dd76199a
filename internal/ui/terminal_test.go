package ui

import (
	"testing"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		wantColor     bool
		ttyDependent  bool // expectation only holds when stdout is not a TTY
	}{
		{
			name:      "NO_COLOR disables color",
			noColor:   "1",
			wantColor: false,
		},
		{
			name:         "nothing set follows TTY state",
			wantColor:    false,
			ttyDependent: true, // test processes have no TTY on stdout
		},
		{
			name:      "CLICOLOR=0 disables color",
			cliColor:  "0",
			wantColor: false,
		},
		{
			name:          "CLICOLOR_FORCE enables color even in non-TTY",
			cliColorForce: "1",
			wantColor:     true,
		},
		{
			name:          "NO_COLOR takes precedence over CLICOLOR_FORCE",
			noColor:       "1",
			cliColorForce: "1",
			wantColor:     false,
		},
		{
			name:          "CLICOLOR_FORCE=0 does not force",
			cliColorForce: "0",
			wantColor:     false,
			ttyDependent:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)

			got := ShouldUseColor()
			if tt.ttyDependent && got {
				// Running under a TTY; the non-forced expectations flip.
				t.Skip("stdout is a TTY")
			}
			if got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestTruncateSimple(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly_10", 10, "exactly_10"},
		{"this is far too long", 10, "this is..."},
		{"abc", 3, "abc"},
		{"truncate me", 3, "..."},
		{"héllö wörld ünïcode", 10, "héllö w..."},
	}
	for _, tt := range tests {
		if got := TruncateSimple(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("TruncateSimple(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	in := "the quick brown fox jumps over the lazy dog"
	got := WrapText(in, 15)
	for i, line := range splitLines(got) {
		if n := len([]rune(line)); n > 15 {
			t.Errorf("line %d is %d runes: %q", i, n, line)
		}
	}

	multi := "first line\nsecond line"
	if got := WrapText(multi, 80); got != multi {
		t.Errorf("WrapText altered short multi-line text: %q", got)
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
