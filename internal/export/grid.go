package export

import (
	"io"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/geom"
	"github.com/san-kum/damaskio/internal/rotation"
)

type OrientationsDocument struct {
	Type         string                `json:"type"`
	Convention   string                `json:"convention"`
	EulerDegrees bool                  `json:"euler_degrees"`
	Labels       []string              `json:"labels"`
	EulerAngles  []damask.Vec3         `json:"euler_angles"`
	Quaternions  []rotation.Quaternion `json:"quaternions"`
}

// GridDocument is the serialized form of a VoxelGrid. Voxel arrays are
// nested [x][y][z].
type GridDocument struct {
	Grid                   [3]int                `json:"grid"`
	Size                   *damask.Vec3          `json:"size,omitempty"`
	Origin                 *damask.Vec3          `json:"origin,omitempty"`
	VoxelGrainIdx          [][][]int             `json:"voxel_grain_idx"`
	VoxelHomogenizationIdx [][][]int             `json:"voxel_homogenization_idx,omitempty"`
	GrainPhaseLabelIdx     []int                 `json:"grain_phase_label_idx,omitempty"`
	GrainOrientationIdx    []int                 `json:"grain_orientation_idx,omitempty"`
	Orientations           *OrientationsDocument `json:"orientations,omitempty"`
	Meta                   geom.Meta             `json:"meta"`
}

func nested(g *geom.IndexGrid) [][][]int {
	if g == nil {
		return nil
	}
	out := make([][][]int, g.Dims[0])
	for x := range out {
		out[x] = make([][]int, g.Dims[1])
		for y := range out[x] {
			out[x][y] = make([]int, g.Dims[2])
			for z := range out[x][y] {
				out[x][y][z] = g.At(x, y, z)
			}
		}
	}
	return out
}

func NewGridDocument(v *geom.VoxelGrid) *GridDocument {
	doc := &GridDocument{
		Grid:                   v.Grid,
		Size:                   v.Size,
		Origin:                 v.Origin,
		VoxelGrainIdx:          nested(v.GrainIdx),
		VoxelHomogenizationIdx: nested(v.HomogenizationIdx),
		GrainPhaseLabelIdx:     v.GrainPhaseLabelIdx,
		GrainOrientationIdx:    v.GrainOrientationIdx,
		Meta:                   v.Meta,
	}
	if o := v.Orientations; o != nil {
		doc.Orientations = &OrientationsDocument{
			Type:         o.Type,
			Convention:   o.Convention,
			EulerDegrees: o.EulerDegrees,
			Labels:       o.Labels,
			EulerAngles:  o.EulerAngles,
			Quaternions:  o.Quaternions(),
		}
	}
	return doc
}

func GridJSON(w io.Writer, v *geom.VoxelGrid) error {
	return WriteJSON(w, NewGridDocument(v))
}
