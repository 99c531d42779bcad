package geom

import "fmt"

// IndexGrid is a 3-D integer field indexed (x, y, z).
//
// Data keeps the geometry file's read order: the body is a (ny*nz, nx) array
// whose row r = y + ny*z holds the voxels of constant (y, z). Reshaping that
// array to (nz, ny, nx) and swapping the first and last axes gives (x, y, z)
// indexing, so
//
//	At(x, y, z) == Data[x + nx*(y + ny*z)]
type IndexGrid struct {
	Dims [3]int
	Data []int
}

func newIndexGrid(dims [3]int) *IndexGrid {
	return &IndexGrid{Dims: dims, Data: make([]int, dims[0]*dims[1]*dims[2])}
}

// Len is the number of voxels.
func (g *IndexGrid) Len() int {
	return len(g.Data)
}

// Index converts (x, y, z) into an offset into Data.
func (g *IndexGrid) Index(x, y, z int) int {
	return x + g.Dims[0]*(y+g.Dims[1]*z)
}

// Coords converts an offset into Data back to (x, y, z).
func (g *IndexGrid) Coords(i int) (x, y, z int) {
	x = i % g.Dims[0]
	y = (i / g.Dims[0]) % g.Dims[1]
	z = i / (g.Dims[0] * g.Dims[1])
	return x, y, z
}

func (g *IndexGrid) At(x, y, z int) int {
	return g.Data[g.Index(x, y, z)]
}

func (g *IndexGrid) Set(x, y, z, v int) {
	g.Data[g.Index(x, y, z)] = v
}

// Max returns the largest value, or -1 for an empty grid.
func (g *IndexGrid) Max() int {
	m := -1
	for _, v := range g.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest value, or 0 for an empty grid.
func (g *IndexGrid) Min() int {
	if len(g.Data) == 0 {
		return 0
	}
	m := g.Data[0]
	for _, v := range g.Data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Counts returns the number of voxels per value.
func (g *IndexGrid) Counts() map[int]int {
	counts := make(map[int]int)
	for _, v := range g.Data {
		counts[v]++
	}
	return counts
}

func (g *IndexGrid) String() string {
	return fmt.Sprintf("IndexGrid%v", g.Dims)
}
