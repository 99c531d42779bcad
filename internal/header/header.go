// Package header reads the header-line count that prefixes DAMASK text artifacts.
//
// Geometry files and ASCII tables start with a line such as "5 header"; the
// integer is the number of lines that follow it before the data body.
package header

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/san-kum/damaskio/internal/damask"
)

// maxDigits bounds how far into the artifact the count may extend.
const maxDigits = 9

// Count reads the leading integer token of r. Only the digits and the byte
// that terminates them are consumed.
func Count(r io.Reader) (int, error) {
	var buf [1]byte

	n := 0
	digits := 0
	for digits <= maxDigits {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read header count: %w", err)
		}
		b := buf[0]
		if b >= '0' && b <= '9' {
			n = n*10 + int(b-'0')
			digits++
			continue
		}
		if digits == 0 {
			return 0, damask.NewParseError("header", damask.ErrFormat,
				"leading token starts with %q, want an integer", rune(b))
		}
		if !unicode.IsSpace(rune(b)) {
			return 0, damask.NewParseError("header", damask.ErrFormat,
				"leading token is not an integer (stopped at %q)", rune(b))
		}
		return n, nil
	}

	if digits == 0 {
		return 0, damask.NewParseError("header", damask.ErrMissingField, "empty artifact has no header count")
	}
	if digits > maxDigits {
		return 0, damask.NewParseError("header", damask.ErrFormat, "header count exceeds %d digits", maxDigits)
	}
	return n, nil
}

// CountString is Count over an in-memory artifact.
func CountString(text string) (int, error) {
	return Count(strings.NewReader(text))
}

// CountFile opens path and reads its header count.
func CountFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := Count(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
