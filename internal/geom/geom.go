package geom

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/header"
)

// CommandPrefix marks solver commands recorded in the geometry header.
const CommandPrefix = "geom_"

var (
	gridLine           = regexp.MustCompile(`(?mi)^\s*grid\s+a\s+(\d+)\s+b\s+(\d+)\s+c\s+(\d+)\s*$`)
	sizeLine           = vectorLine("size")
	originLine         = vectorLine("origin")
	homogenizationLine = regexp.MustCompile(`(?mi)^\s*homogenization\s+(\d+)\s*$`)
)

func vectorLine(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?mi)^\s*` + name + `\s+x\s+(` + number + `)\s+y\s+(` + number + `)\s+z\s+(` + number + `)\s*$`)
}

// Meta records header facts that are not part of the voxel data.
type Meta struct {
	NumHeader int      `json:"num_header"`
	Commands  []string `json:"commands"`
}

// VoxelGrid is a parsed geometry file. All indices are zero-based.
type VoxelGrid struct {
	Grid              [3]int
	GrainIdx          *IndexGrid
	HomogenizationIdx *IndexGrid
	Size              *damask.Vec3
	Origin            *damask.Vec3

	// Present only when the file embeds a <microstructure> section.
	GrainPhaseLabelIdx  []int
	GrainOrientationIdx []int
	Microstructure      *Microstructure

	// Present only when the file embeds a <texture> section.
	Orientations *Orientations

	Meta Meta
}

// NumGrains is the number of grains described by the microstructure, or the
// number of distinct grain ids seen in the voxel data when there is none.
func (v *VoxelGrid) NumGrains() int {
	if v.Microstructure != nil {
		return v.Microstructure.Len()
	}
	return len(v.GrainIdx.Counts())
}

func (v *VoxelGrid) NumVoxels() int {
	return v.Grid[0] * v.Grid[1] * v.Grid[2]
}

// ParseFile reads and parses the geometry file at path.
func ParseFile(path string) (*VoxelGrid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geometry: %w", err)
	}
	return Parse(string(data))
}

// Parse parses geometry file text: a header count line, that many header
// lines and a body of one-based grain ids, grid_x per row and
// grid_y*grid_z rows.
func Parse(text string) (*VoxelGrid, error) {
	numHeader, err := header.CountString(text)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < numHeader+1 {
		return nil, damask.NewParseError("geom", damask.ErrInconsistent,
			"header declares %d lines but the file has %d", numHeader, len(lines)-1)
	}
	head := lines[1 : numHeader+1]
	headText := strings.Join(head, "\n")

	v := &VoxelGrid{Meta: Meta{NumHeader: numHeader, Commands: []string{}}}

	m := gridLine.FindStringSubmatch(headText)
	if m == nil {
		return nil, damask.NewParseError("geom", damask.ErrMissingField, "no grid a <i> b <j> c <k> line in header")
	}
	for i := 0; i < 3; i++ {
		if v.Grid[i], err = damask.ParseInt("geom", m[i+1]); err != nil {
			return nil, err
		}
		if v.Grid[i] < 1 {
			return nil, damask.NewParseError("geom", damask.ErrFormat, "grid dimensions must be positive, got %v", v.Grid)
		}
	}

	if v.Size, err = parseVector(sizeLine, headText); err != nil {
		return nil, err
	}
	if v.Origin, err = parseVector(originLine, headText); err != nil {
		return nil, err
	}

	for _, ln := range head {
		if strings.HasPrefix(ln, CommandPrefix) {
			v.Meta.Commands = append(v.Meta.Commands, ln)
		}
	}

	if v.GrainIdx, err = parseBody(lines[numHeader+1:], v.Grid); err != nil {
		return nil, err
	}

	if m := homogenizationLine.FindStringSubmatch(headText); m != nil {
		h, err := damask.ParseInt("geom", m[1])
		if err != nil {
			return nil, err
		}
		if h < 1 {
			return nil, damask.NewParseError("geom", damask.ErrFormat, "homogenization is one-indexed, got %d", h)
		}
		v.HomogenizationIdx = newIndexGrid(v.Grid)
		for i := range v.HomogenizationIdx.Data {
			v.HomogenizationIdx.Data[i] = h - 1
		}
	}

	if body, ok := section(head, "microstructure"); ok {
		if v.Microstructure, err = ParseMicrostructure(body); err != nil {
			return nil, err
		}
		v.GrainPhaseLabelIdx = v.Microstructure.PhaseIdx
		v.GrainOrientationIdx = v.Microstructure.OrientationIdx
	}
	if body, ok := section(head, "texture"); ok {
		if v.Orientations, err = ParseTexture(body); err != nil {
			return nil, err
		}
	}

	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *VoxelGrid) validate() error {
	if v.Microstructure != nil {
		n := v.Microstructure.Len()
		for i, g := range v.GrainIdx.Data {
			if g >= n {
				x, y, z := v.GrainIdx.Coords(i)
				return damask.NewParseError("geom", damask.ErrInconsistent,
					"voxel (%d, %d, %d) references grain %d but the microstructure has %d", x, y, z, g, n)
			}
		}
	}

	if v.Microstructure != nil && v.Orientations != nil {
		n := v.Orientations.Len()
		for i, o := range v.GrainOrientationIdx {
			if o < 0 || o >= n {
				pe := damask.NewParseError("geom", damask.ErrInconsistent,
					"grain %d references orientation %d but the texture has %d", i, o, n)
				pe.Key = "grain_orientation_idx"
				return pe
			}
		}
	}
	return nil
}

func parseVector(re *regexp.Regexp, text string) (*damask.Vec3, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	var v damask.Vec3
	for i := 0; i < 3; i++ {
		f, err := damask.ParseFloat("geom", m[i+1])
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return &v, nil
}

// parseBody lays the body rows into a (ny*nz, nx) array in line order; see
// IndexGrid for how that maps to (x, y, z). Ids are shifted to zero-based.
func parseBody(lines []string, dims [3]int) (*IndexGrid, error) {
	g := newIndexGrid(dims)
	nx, rows := dims[0], dims[1]*dims[2]

	row := 0
	for ln, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if row == rows {
			return nil, damask.NewParseError("geom", damask.ErrInconsistent,
				"body has more than the %d rows given by grid %v", rows, dims)
		}
		if len(fields) != nx {
			return nil, damask.NewParseError("geom", damask.ErrInconsistent,
				"body line %d has %d values, grid_x is %d", ln+1, len(fields), nx)
		}
		for col, tok := range fields {
			id, err := damask.ParseInt("geom", tok)
			if err != nil {
				return nil, err
			}
			if id < 1 {
				return nil, damask.NewParseError("geom", damask.ErrFormat,
					"grain ids are one-indexed, got %d on body line %d", id, ln+1)
			}
			g.Set(col, row%dims[1], row/dims[1], id-1)
		}
		row++
	}
	if row != rows {
		return nil, damask.NewParseError("geom", damask.ErrInconsistent,
			"body has %d rows, grid %v needs %d", row, dims, rows)
	}
	return g, nil
}
