package geom

import (
	"regexp"
	"strings"

	"github.com/san-kum/damaskio/internal/damask"
)

const number = `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`

// entryHeader matches a "[name]" line opening a section entry.
var entryHeader = regexp.MustCompile(`(?m)^\s*\[([^\]\n]+)\]\s*$`)

// entryLine matches the lines a section may hold: entry names, crystallite
// counts and (constituent) or (gauss) components.
var entryLine = regexp.MustCompile(`^(?:\[[^\]]+\]|crystallite\s|\((?:constituent|gauss)\))`)

// section returns the lines following a "<name>" tag up to the first line
// that is not part of an entry. ok is false when the tag is absent.
func section(header []string, name string) (body string, ok bool) {
	tag := "<" + name + ">"
	start := -1
	for i, ln := range header {
		if strings.EqualFold(strings.TrimSpace(ln), tag) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := len(header)
	for i := start; i < len(header); i++ {
		ln := strings.TrimSpace(header[i])
		if ln != "" && !entryLine.MatchString(strings.ToLower(ln)) {
			end = i
			break
		}
	}
	return strings.Join(header[start:end], "\n"), true
}

type entry struct {
	label string
	body  string
}

// entries cuts a section body at its "[name]" lines. Text before the first
// entry must be blank.
func entries(source, body string) ([]entry, error) {
	locs := entryHeader.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return nil, damask.NewParseError(source, damask.ErrMissingField, "section has no [name] entries")
	}
	if lead := strings.TrimSpace(body[:locs[0][0]]); lead != "" {
		return nil, damask.NewParseError(source, damask.ErrFormat, "unexpected text before first entry: %q", lead)
	}

	out := make([]entry, 0, len(locs))
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, entry{
			label: strings.TrimSpace(body[loc[2]:loc[3]]),
			body:  strings.TrimSpace(body[loc[1]:end]),
		})
	}
	return out, nil
}
