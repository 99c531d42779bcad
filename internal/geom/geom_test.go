package geom_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/geom"
)

// geomFile assembles a geometry file from header lines and body rows.
func geomFile(head []string, body ...string) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(head)) + "\theader")
	sb.WriteString("\n")
	for _, ln := range head {
		sb.WriteString(ln + "\n")
	}
	for _, ln := range body {
		sb.WriteString(ln + "\n")
	}
	return sb.String()
}

var microstructure = []string{
	"<microstructure>",
	"[Grain1]",
	"crystallite 1",
	"(constituent)  phase 1  texture 1  fraction 1.0",
	"[Grain2]",
	"crystallite 1",
	"(constituent)  phase 2  texture 2  fraction 1.0",
}

var texture = []string{
	"<texture>",
	"[Grain1]",
	"(gauss)  phi1 0.0  Phi 0.0  phi2 0.0  scatter 0.0  fraction 1.0",
	"[Grain2]",
	"(gauss)  phi1 90.0  Phi 45.0  phi2 30.0",
}

var _ = Describe("Parse", func() {
	Context("with a 2x2x2 grid holding a single distinct voxel", func() {
		var v *geom.VoxelGrid

		BeforeEach(func() {
			text := geomFile(
				[]string{"grid a 2 b 2 c 2"},
				"1 1",
				"1 1",
				"1 1",
				"1 2",
			)
			var err error
			v, err = geom.Parse(text)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reads the grid dimensions", func() {
			Expect(v.Grid).To(Equal([3]int{2, 2, 2}))
			Expect(v.NumVoxels()).To(Equal(8))
			Expect(v.GrainIdx.Len()).To(Equal(8))
		})

		It("places the voxel at the (x, y, z) of its column and row", func() {
			// Row 3 is y=1, z=1; column 1 is x=1.
			Expect(v.GrainIdx.At(1, 1, 1)).To(Equal(1))
			Expect(v.GrainIdx.Counts()).To(Equal(map[int]int{0: 7, 1: 1}))
		})

		It("shifts ids to zero-based", func() {
			Expect(v.GrainIdx.Min()).To(Equal(0))
			Expect(v.GrainIdx.Max()).To(Equal(1))
		})

		It("leaves optional fields unset", func() {
			Expect(v.Size).To(BeNil())
			Expect(v.Origin).To(BeNil())
			Expect(v.HomogenizationIdx).To(BeNil())
			Expect(v.Microstructure).To(BeNil())
			Expect(v.Orientations).To(BeNil())
			Expect(v.Meta.NumHeader).To(Equal(1))
			Expect(v.Meta.Commands).To(BeEmpty())
		})
	})

	It("distinguishes the x, y and z axes", func() {
		text := geomFile(
			[]string{"grid a 3 b 2 c 2"},
			"1 2 3",
			"4 5 6",
			"7 8 9",
			"10 11 12",
		)
		v, err := geom.Parse(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GrainIdx.At(2, 0, 0)).To(Equal(2))
		Expect(v.GrainIdx.At(0, 1, 0)).To(Equal(3))
		Expect(v.GrainIdx.At(0, 0, 1)).To(Equal(6))
		Expect(v.GrainIdx.At(2, 1, 1)).To(Equal(11))

		x, y, z := v.GrainIdx.Coords(10)
		Expect([]int{x, y, z}).To(Equal([]int{1, 1, 1}))
	})

	It("reads size, origin, homogenization and commands from the header", func() {
		text := geomFile(
			[]string{
				"grid a 2 b 1 c 1",
				"size x 1.0 y 0.5 z 2.5e-1",
				"origin x 0.0 y -1.0 z 0.0",
				"homogenization 2",
				"microstructures 1",
				"geom_fromVoronoiTessellation -g 2 1 1",
				"geom_canvas -g 2 1 1",
			},
			"1 1",
		)
		v, err := geom.Parse(text)
		Expect(err).NotTo(HaveOccurred())
		Expect(*v.Size).To(Equal(damask.Vec3{1.0, 0.5, 0.25}))
		Expect(*v.Origin).To(Equal(damask.Vec3{0.0, -1.0, 0.0}))
		Expect(v.HomogenizationIdx.Data).To(Equal([]int{1, 1}))
		Expect(v.Meta.NumHeader).To(Equal(7))
		Expect(v.Meta.Commands).To(Equal([]string{
			"geom_fromVoronoiTessellation -g 2 1 1",
			"geom_canvas -g 2 1 1",
		}))
	})

	Context("with embedded microstructure and texture", func() {
		head := func() []string {
			h := []string{"grid a 2 b 1 c 1"}
			h = append(h, microstructure...)
			return append(h, texture...)
		}

		It("maps grains onto phases and orientations", func() {
			v, err := geom.Parse(geomFile(head(), "1 2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GrainPhaseLabelIdx).To(Equal([]int{0, 1}))
			Expect(v.GrainOrientationIdx).To(Equal([]int{0, 1}))
			Expect(v.NumGrains()).To(Equal(2))
			Expect(v.Microstructure.Labels).To(Equal([]string{"Grain1", "Grain2"}))

			Expect(v.Orientations.Type).To(Equal("euler"))
			Expect(v.Orientations.EulerDegrees).To(BeTrue())
			Expect(v.Orientations.EulerAngles).To(Equal([]damask.Vec3{{0, 0, 0}, {90, 45, 30}}))
			Expect(v.Orientations.Scatter).To(Equal([]float64{0, 0}))
			Expect(v.Orientations.Fraction).To(Equal([]float64{1, 1}))

			q := v.Orientations.Quaternions()
			Expect(q).To(HaveLen(2))
			Expect(q[0][0]).To(BeNumerically("~", 1.0, 1e-12))
		})

		It("accepts the last orientation index", func() {
			h := []string{"grid a 2 b 1 c 1"}
			h = append(h, microstructure[:4]...)
			h = append(h, "[Grain2]", "crystallite 1", "(constituent)  phase 1  texture 2  fraction 1.0")
			h = append(h, texture...)
			v, err := geom.Parse(geomFile(h, "1 2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GrainOrientationIdx).To(Equal([]int{0, 1}))
		})

		It("rejects an orientation index equal to the texture length", func() {
			h := []string{"grid a 2 b 1 c 1"}
			h = append(h, microstructure[:4]...)
			h = append(h, "[Grain2]", "crystallite 1", "(constituent)  phase 1  texture 3  fraction 1.0")
			h = append(h, texture...)
			_, err := geom.Parse(geomFile(h, "1 2"))
			Expect(err).To(MatchError(damask.ErrInconsistent))

			var pe *damask.ParseError
			Expect(err).To(BeAssignableToTypeOf(pe))
			Expect(err.(*damask.ParseError).Key).To(Equal("grain_orientation_idx"))
		})

		It("rejects voxels referencing grains past the microstructure", func() {
			_, err := geom.Parse(geomFile(head(), "1 3"))
			Expect(err).To(MatchError(damask.ErrInconsistent))
		})

		It("skips orientation checks without a texture section", func() {
			h := []string{"grid a 2 b 1 c 1"}
			h = append(h, microstructure...)
			v, err := geom.Parse(geomFile(h, "1 2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Orientations).To(BeNil())
		})

		It("rejects a malformed constituent", func() {
			h := []string{"grid a 2 b 1 c 1", "<microstructure>", "[Grain1]", "crystallite 1", "phase 1"}
			_, err := geom.Parse(geomFile(h, "1 1"))
			Expect(err).To(MatchError(damask.ErrFormat))
		})

		It("ends sections at the first line outside an entry", func() {
			h := append([]string{}, microstructure...)
			h = append(h, texture...)
			h = append(h,
				"geom_fromVoronoiTessellation -g 2 1 1",
				"grid a 2 b 1 c 1",
				"size x 1.0 y 0.5 z 0.5",
				"origin x 0.0 y 0.0 z 0.0",
				"homogenization 1",
				"microstructures 2",
			)
			v, err := geom.Parse(geomFile(h, "1 2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Microstructure.Len()).To(Equal(2))
			Expect(v.Orientations.Len()).To(Equal(2))
			Expect(v.Orientations.EulerAngles[1]).To(Equal(damask.Vec3{90, 45, 30}))
			Expect(v.Meta.Commands).To(Equal([]string{"geom_fromVoronoiTessellation -g 2 1 1"}))
			Expect(*v.Size).To(Equal(damask.Vec3{1, 0.5, 0.5}))
			Expect(v.HomogenizationIdx).NotTo(BeNil())
		})

		It("rejects numbers that overflow an int", func() {
			h := []string{"grid a 1 b 1 c 1", "<microstructure>", "[Grain1]",
				"crystallite 99999999999999999999",
				"(constituent)  phase 1  texture 1  fraction 1.0"}
			_, err := geom.Parse(geomFile(h, "1"))
			Expect(err).To(MatchError(damask.ErrFormat))

			h[4] = "(constituent)  phase 99999999999999999999  texture 1  fraction 1.0"
			h[3] = "crystallite 1"
			_, err = geom.Parse(geomFile(h, "1"))
			Expect(err).To(MatchError(damask.ErrFormat))
		})
	})

	DescribeTable("rejecting malformed files",
		func(text string, want error) {
			v, err := geom.Parse(text)
			Expect(err).To(MatchError(want))
			Expect(v).To(BeNil())
		},
		Entry("no header count", "grid a 1 b 1 c 1\n1\n", damask.ErrFormat),
		Entry("empty file", "", damask.ErrMissingField),
		Entry("missing grid", geomFile([]string{"size x 1 y 1 z 1"}, "1"), damask.ErrMissingField),
		Entry("zero grid", geomFile([]string{"grid a 0 b 1 c 1"}, ""), damask.ErrFormat),
		Entry("short row", geomFile([]string{"grid a 2 b 1 c 1"}, "1"), damask.ErrInconsistent),
		Entry("missing row", geomFile([]string{"grid a 1 b 2 c 1"}, "1"), damask.ErrInconsistent),
		Entry("extra row", geomFile([]string{"grid a 1 b 1 c 1"}, "1", "1"), damask.ErrInconsistent),
		Entry("non-integer voxel", geomFile([]string{"grid a 1 b 1 c 1"}, "x"), damask.ErrFormat),
		Entry("zero voxel id", geomFile([]string{"grid a 1 b 1 c 1"}, "0"), damask.ErrFormat),
		Entry("header longer than file", "5 header\ngrid a 1 b 1 c 1\n", damask.ErrInconsistent),
	)

	It("reads from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "box.geom")
		Expect(os.WriteFile(path, []byte(geomFile([]string{"grid a 1 b 1 c 1"}, "4")), 0o644)).To(Succeed())

		v, err := geom.ParseFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GrainIdx.Data).To(Equal([]int{3}))
		Expect(v.NumGrains()).To(Equal(1))
	})
})
