// Package validate accumulates header problems for one file without ever
// raising or short-circuiting. Every check on a file runs to completion so a
// single pass surfaces the complete list of problems, and the caller decides
// the file's disposition from the accumulated state afterwards.
package validate

import (
	"fmt"
	"strings"

	"github.com/jsaops/jsaingest/internal/fitsheader"
)

// Checker collects errors and warnings for one file.
type Checker struct {
	name     string
	errors   []string
	warnings []string
}

// New returns a Checker for the named file.
func New(name string) *Checker {
	return &Checker{name: name}
}

// Name returns the file name the checker was created for.
func (c *Checker) Name() string { return c.name }

// Errorf records an error. Errors exclude the file's plane from archive
// writes but never stop further checks.
func (c *Checker) Errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

// Warnf records a warning. Warnings are reported but do not affect the
// file's disposition.
func (c *Checker) Warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// ExpectKeyword reports whether key is present with a defined value,
// recording an error when mandatory and a warning otherwise.
func (c *Checker) ExpectKeyword(h fitsheader.Header, key string, mandatory bool) bool {
	if h.IsDefined(key) {
		return true
	}
	state := "missing"
	if h.Has(key) {
		state = "undefined"
	}
	if mandatory {
		c.Errorf("mandatory keyword %s is %s", key, state)
	} else {
		c.Warnf("keyword %s is %s", key, state)
	}
	return false
}

// RestrictedValue returns the keyword's string value when it is present and
// in the allowed set. A present value outside the set records an error; an
// absent or undefined keyword records nothing (presence is ExpectKeyword's
// concern) and reports ok=false.
func (c *Checker) RestrictedValue(h fitsheader.Header, key string, allowed []string) (string, bool) {
	v, ok := h.String(key)
	if !ok {
		return "", false
	}
	for _, a := range allowed {
		if v == a {
			return v, true
		}
	}
	c.Errorf("keyword %s has value %q, expected one of %s", key, v, strings.Join(allowed, ", "))
	return v, false
}

// HasErrors reports whether any error was recorded.
func (c *Checker) HasErrors() bool { return len(c.errors) > 0 }

// HasWarnings reports whether any warning was recorded.
func (c *Checker) HasWarnings() bool { return len(c.warnings) > 0 }

// Errors returns the recorded errors in order.
func (c *Checker) Errors() []string { return c.errors }

// Warnings returns the recorded warnings in order.
func (c *Checker) Warnings() []string { return c.warnings }
