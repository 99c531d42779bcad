// Package table reads DAMASK ASCII tables as produced by the postResults
// post-processing tools.
//
// A table starts with a header count line (see package header); the last
// header line holds the column labels and every following non-blank line is
// one row of whitespace-separated reals. Columns labelled "<i>_<name>" are
// components of the array column <name>.
package table

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/header"
)

// Shapes maps the supported array component counts onto per-row shapes.
var Shapes = map[int][]int{
	3:  {3},
	4:  {4},
	9:  {3, 3},
	12: {4, 3},
}

var componentLabel = regexp.MustCompile(`^([0-9]+)_(.+)$`)

type Options struct {
	// CombineArrayColumns merges "<i>_<name>" columns into one shaped column.
	CombineArrayColumns bool
	// IgnoreDuplicateColumns renames repeated labels to label.1, label.2, ...
	// instead of failing.
	IgnoreDuplicateColumns bool
}

func DefaultOptions() Options {
	return Options{CombineArrayColumns: true}
}

// Column is one named column. Data is row-major: row i occupies
// Data[i*Size() : (i+1)*Size()].
type Column struct {
	Name  string
	Shape []int
	Data  []float64
}

// Size is the number of values per row.
func (c *Column) Size() int {
	n := 1
	for _, d := range c.Shape {
		n *= d
	}
	return n
}

// Row returns the values of row i.
func (c *Column) Row(i int) []float64 {
	n := c.Size()
	return c.Data[i*n : (i+1)*n]
}

type Table struct {
	// Header holds the header lines preceding the labels.
	Header  []string
	Labels  []string
	Columns []Column
	Rows    int
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func ReadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	defer f.Close()
	return Read(f, opts)
}

func Read(r io.Reader, opts Options) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return ReadString(string(data), opts)
}

func ReadString(text string, opts Options) (*Table, error) {
	numHeader, err := header.CountString(text)
	if err != nil {
		return nil, err
	}
	if numHeader < 1 {
		return nil, damask.NewParseError("table", damask.ErrMissingField, "no column label line")
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < numHeader+1 {
		return nil, damask.NewParseError("table", damask.ErrInconsistent,
			"header declares %d lines but the file has %d", numHeader, len(lines)-1)
	}

	labels, err := columnLabels(strings.Fields(lines[numHeader]), opts.IgnoreDuplicateColumns)
	if err != nil {
		return nil, err
	}

	raw := make([][]float64, len(labels))
	rows := 0
	for ln, line := range lines[numHeader+1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(labels) {
			return nil, damask.NewParseError("table", damask.ErrInconsistent,
				"row %d has %d values for %d columns", ln+1, len(fields), len(labels))
		}
		for i, tok := range fields {
			v, err := damask.ParseFloat("table", tok)
			if err != nil {
				return nil, err
			}
			raw[i] = append(raw[i], v)
		}
		rows++
	}

	groups, err := arrayGroups(labels)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Header: lines[1:numHeader],
		Labels: labels,
		Rows:   rows,
	}
	if !opts.CombineArrayColumns {
		for i, l := range labels {
			t.Columns = append(t.Columns, Column{Name: l, Data: raw[i]})
		}
		return t, nil
	}

	done := make(map[string]bool)
	for i, l := range labels {
		m := componentLabel.FindStringSubmatch(l)
		if m == nil {
			t.Columns = append(t.Columns, Column{Name: l, Data: raw[i]})
			continue
		}
		name := m[2]
		if done[name] {
			continue
		}
		done[name] = true

		idx := groups[name]
		col := Column{Name: name, Shape: Shapes[len(idx)], Data: make([]float64, 0, rows*len(idx))}
		for r := 0; r < rows; r++ {
			for _, c := range idx {
				col.Data = append(col.Data, raw[c][r])
			}
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

// columnLabels checks labels for duplicates, renaming them when ignore is set.
func columnLabels(labels []string, ignore bool) ([]string, error) {
	if len(labels) == 0 {
		return nil, damask.NewParseError("table", damask.ErrMissingField, "column label line is blank")
	}

	seen := make(map[string]int, len(labels))
	out := make([]string, len(labels))
	for i, l := range labels {
		n := seen[l]
		seen[l] = n + 1
		if n == 0 {
			out[i] = l
			continue
		}
		if !ignore {
			pe := damask.NewParseError("table", damask.ErrInconsistent, "duplicated column")
			pe.Key = l
			return nil, pe
		}
		out[i] = l + "." + strconv.Itoa(n)
	}
	return out, nil
}

// arrayGroups collects the column indices of each array column in component
// order and checks that every group has a supported size.
func arrayGroups(labels []string) (map[string][]int, error) {
	byComponent := make(map[string]map[int]int)
	for i, l := range labels {
		m := componentLabel.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		comp, err := damask.ParseInt("table", m[1])
		if err != nil {
			return nil, err
		}
		if byComponent[m[2]] == nil {
			byComponent[m[2]] = make(map[int]int)
		}
		byComponent[m[2]][comp] = i
	}

	bad := make(map[int]bool)
	for _, comps := range byComponent {
		if _, ok := Shapes[len(comps)]; !ok {
			bad[len(comps)] = true
		}
	}
	if len(bad) > 0 {
		return nil, damask.NewParseError("table", damask.ErrUnsupportedShape,
			"array columns must have one of %v components, found %v", sortedKeys(Shapes), sortedKeys(bad))
	}

	groups := make(map[string][]int, len(byComponent))
	for name, comps := range byComponent {
		idx := make([]int, len(comps))
		for k := range idx {
			c, ok := comps[k+1]
			if !ok {
				pe := damask.NewParseError("table", damask.ErrInconsistent,
					"array column has %d components but no component %d", len(comps), k+1)
				pe.Key = name
				return nil, pe
			}
			idx[k] = c
		}
		groups[name] = idx
	}
	return groups, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
