package ui

import (
	"charm.land/glamour/v2"
)

// RenderMarkdown renders markdown text using glamour for terminal display.
// Returns the rendered markdown or the original text if rendering fails.
// Word wraps at terminal width (or 80 columns if width can't be detected).
func RenderMarkdown(markdown string) string {
	// Skip glamour if colors are disabled
	if !ShouldUseColor() {
		return markdown
	}

	// Cap at 100 chars for readability - wider lines cause eye-tracking fatigue
	const maxReadableWidth = 100
	wrapWidth := 80 // default if terminal size unavailable
	if w := TerminalWidth(); w > 0 {
		wrapWidth = w
	}
	if wrapWidth > maxReadableWidth {
		wrapWidth = maxReadableWidth
	}

	// Environment-selected style respects terminal light/dark mode
	renderer, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return markdown
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}

	return rendered
}
