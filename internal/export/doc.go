// Package export renders parsed records as JSON, YAML, CSV and SVG.
package export
