// Package grid builds the evaluation grid of a block from its application
// extrinsics and extends it by low-degree extension along rows.
//
// Grids are row-major. Row i of an unextended grid holds the evaluations of
// one polynomial of degree < Cols over the Cols-th roots of unity; extension
// doubles Cols and keeps Rows.
package grid

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

var (
	ErrEmptyInput      = errors.New("grid: no extrinsics")
	ErrGridOverflow    = errors.New("grid: data exceeds maximum grid capacity")
	ErrInvalidConfig   = errors.New("grid: invalid builder configuration")
	ErrInvalidPosition = errors.New("grid: position out of range")
	ErrUnknownApp      = errors.New("grid: app id not in lookup")
)

// AppExtrinsic is an application payload submitted for inclusion.
type AppExtrinsic struct {
	AppID uint32
	Data  []byte
}

// Dimensions is the shape of a grid. Both sides are powers of two.
type Dimensions struct {
	Rows int
	Cols int
}

// Size returns Rows*Cols.
func (d Dimensions) Size() int { return d.Rows * d.Cols }

// Index maps (row, col) to the offset of the cell in a row-major grid. Every
// flat offset in this module is computed here.
func (d Dimensions) Index(row, col int) int { return row*d.Cols + col }

// Position is the inverse of Index.
func (d Dimensions) Position(i int) Position {
	return Position{Row: uint32(i / d.Cols), Col: uint16(i % d.Cols)}
}

// Contains reports whether p lies inside the grid.
func (d Dimensions) Contains(p Position) bool {
	return int(p.Row) < d.Rows && int(p.Col) < d.Cols
}

// Extended returns the shape after row extension.
func (d Dimensions) Extended() Dimensions { return Dimensions{Rows: d.Rows, Cols: 2 * d.Cols} }

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Rows, d.Cols) }

// Position addresses one cell of a grid.
type Position struct {
	Row uint32 `json:"row"`
	Col uint16 `json:"col"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Grid is a dense row-major matrix of field elements. A Grid is not
// modified after construction and may be read concurrently.
type Grid struct {
	Dims  Dimensions
	Evals []fr.Element
}

// NewGrid allocates a zero grid of the given shape.
func NewGrid(dims Dimensions) *Grid {
	return &Grid{Dims: dims, Evals: make([]fr.Element, dims.Size())}
}

// Row returns row i. The slice aliases the grid and must not be modified.
func (g *Grid) Row(i int) []fr.Element {
	start := g.Dims.Index(i, 0)
	return g.Evals[start : start+g.Dims.Cols]
}

// At returns the element at p.
func (g *Grid) At(p Position) (fr.Element, error) {
	if !g.Dims.Contains(p) {
		return fr.Element{}, fmt.Errorf("%w: %s in %s grid", ErrInvalidPosition, p, g.Dims)
	}
	return g.Evals[g.Dims.Index(int(p.Row), int(p.Col))], nil
}

// Column copies column col out of the grid.
func (g *Grid) Column(col int) []fr.Element {
	out := make([]fr.Element, g.Dims.Rows)
	for r := range out {
		out[r] = g.Evals[g.Dims.Index(r, col)]
	}
	return out
}

// Equal reports whether both grids have the same shape and values.
func (g *Grid) Equal(o *Grid) bool {
	if g.Dims != o.Dims || len(g.Evals) != len(o.Evals) {
		return false
	}
	for i := range g.Evals {
		if !g.Evals[i].Equal(&o.Evals[i]) {
			return false
		}
	}
	return true
}
