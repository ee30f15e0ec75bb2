package source

import (
	"sort"
	"strings"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

// Format is a radiograph file format tag.
type Format string

// Registered format tags.
const (
	Carlo  Format = "carlo"  // simulation proton list with ASCII header
	Flash4 Format = "flash4" // FLASH4 ProtonDetectorFile plus sibling metadata
	MITCSV Format = "mitcsv" // pre-binned vendor CSV image
	CSV    Format = "csv"    // generic delimited-text image
	PRR    Format = "prr"    // this tool's intermediate text format
)

// formatAliases maps accepted alternate spellings to canonical tags.
var formatAliases = map[string]Format{
	"flash": Flash4,
	"mit":   MITCSV,
	"txt":   CSV,
}

// Formats returns every canonical format tag, sorted.
func Formats() []Format {
	out := []Format{Carlo, Flash4, MITCSV, CSV, PRR}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]Format {
	out := make(map[string]Format, len(formatAliases))
	for k, v := range formatAliases {
		out[k] = v
	}
	return out
}

// ParseFormat resolves a user-supplied tag (case-insensitive, aliases
// accepted) to a canonical Format. Unknown tags fail with
// UNSUPPORTED_FORMAT listing the known tags.
func ParseFormat(s string) (Format, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if f, ok := formatAliases[tag]; ok {
		return f, nil
	}
	for _, f := range Formats() {
		if string(f) == tag {
			return f, nil
		}
	}
	return "", unsupported(s)
}

func unsupported(tag string) error {
	known := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		known = append(known, string(f))
	}
	return perr.New(perr.ErrCodeUnsupportedFormat,
		"unknown format %q (known: %s)", tag, strings.Join(known, ", "))
}

// String implements fmt.Stringer.
func (f Format) String() string { return string(f) }
