package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ShouldUseColor reports whether styled output is appropriate on stdout.
// NO_COLOR and CLICOLOR=0 disable color, CLICOLOR_FORCE enables it even
// when stdout is not a terminal, and otherwise color follows TTY state.
// NO_COLOR always wins.
func ShouldUseColor() bool {
	if termenv.EnvNoColor() {
		return false
	}
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the stdout terminal width, or 0 when stdout is not
// a terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
