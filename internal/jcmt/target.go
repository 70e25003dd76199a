package jcmt

import (
	"regexp"
	"strings"
)

var targetSpace = regexp.MustCompile(`\s+`)

// TargetName canonicalizes an OBJECT header value for the CAOM-2 target:
// upper-cased, trimmed, with runs of whitespace collapsed to single
// spaces. Observers type the same source many ways ("omc 1", "OMC1 ",
// "omc  1"); searches need one spelling per source.
func TargetName(object string) string {
	return targetSpace.ReplaceAllString(strings.ToUpper(strings.TrimSpace(object)), " ")
}
