package jcmt

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	acsisRawPattern  = regexp.MustCompile(`^a(\d{8})_(\d{5})_\d{2}_\d{4}\.sdf$`)
	scuba2RawPattern = regexp.MustCompile(`^s[48][abcd](\d{8})_(\d{5})_\d{4}\.sdf$`)
)

// Raw files transferred before the compression cutover even though their
// dates fall inside the compressed range.
var nonGzFiles = map[string]bool{
	"a20061112_00010_00_0001.sdf": true,
	"a20061112_00013_00_0001.sdf": true,
	"s4a20140415_00082_0001.sdf":  true,
	"s4a20140729_00001_0001.sdf":  true,
	"s4b20140415_00082_0001.sdf":  true,
	"s4c20140415_00082_0001.sdf":  true,
	"s4d20140415_00082_0001.sdf":  true,
}

// MakeFileID derives the archive file ID for a local file. Processed
// products (.fits, and the .yaml header dumps used for dry runs) are
// identified by their extension-less base name; raw .sdf files keep the
// extension and gain ".gz" when the archive stored them compressed. File
// IDs are always lower case.
func MakeFileID(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch ext := filepath.Ext(base); ext {
	case ".fits", ".fit", ".yaml", ".yml":
		return strings.TrimSuffix(base, ext)
	case ".sdf":
		if fileIDIsGz(base) {
			return base + ".gz"
		}
		return base
	case ".gz":
		return base
	case "":
		return base
	default:
		return strings.TrimSuffix(base, ext)
	}
}

// fileIDIsGz reports whether the archive stored this raw file gzipped.
// Raw data was compressed on transfer from 2006-07-01 through 2015-01-23,
// except for a transfer-system outage in January 2014 and a handful of
// individually re-transferred files.
func fileIDIsGz(fileID string) bool {
	var date, obs int
	scuba2 := false
	if m := acsisRawPattern.FindStringSubmatch(fileID); m != nil {
		date, _ = strconv.Atoi(m[1])
		obs, _ = strconv.Atoi(m[2])
	} else if m := scuba2RawPattern.FindStringSubmatch(fileID); m != nil {
		date, _ = strconv.Atoi(m[1])
		obs, _ = strconv.Atoi(m[2])
		scuba2 = true
	} else {
		return false
	}
	switch {
	case nonGzFiles[fileID]:
		return false
	case date < 20060701 || date > 20150123:
		return false
	case date >= 20140116 && date <= 20140122:
		return false
	case scuba2 && date == 20140115 && obs >= 38 && obs <= 53:
		return false
	}
	return true
}
