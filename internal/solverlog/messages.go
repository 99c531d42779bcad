package solverlog

import (
	"regexp"

	"github.com/san-kum/damaskio/internal/damask"
)

func scanMessages(text string, box *regexp.Regexp) ([]damask.Message, error) {
	matches := box.FindAllStringSubmatch(text, -1)
	msgs := make([]damask.Message, 0, len(matches))
	for _, m := range matches {
		code, err := damask.ParseInt("message", m[1])
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, damask.Message{
			Code:    code,
			Message: joinFragments(m[2], m[3]),
		})
	}
	return msgs, nil
}

// ParseWarnings returns every box-drawn warning in text, in order.
func ParseWarnings(text string) ([]damask.Message, error) {
	return scanMessages(text, warningBox)
}

// ParseStderr returns every box-drawn error of the solver's diagnostic stream,
// in order. The stream has no increment structure.
func ParseStderr(text string) ([]damask.Message, error) {
	return scanMessages(text, errorBox)
}
