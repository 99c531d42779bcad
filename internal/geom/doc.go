// Package geom parses DAMASK voxel geometry files into zero-indexed grain and
// homogenization grids, together with the microstructure and texture tables
// some files embed in their header.
package geom
