package grid

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/eth2030/dagrid/das/field"
)

// Extend returns a new grid whose rows are the low-degree extensions of the
// rows of g: for every row, columns [0, Cols) hold the original values and
// columns [Cols, 2*Cols) the parity evaluations. g is not modified.
func Extend(g *Grid) (*Grid, error) {
	dom, err := field.NewDomain(g.Dims.Cols)
	if err != nil {
		return nil, err
	}
	if g.Dims.Rows < 1 || len(g.Evals) != g.Dims.Size() {
		return nil, fmt.Errorf("%w: %d values for %s grid", ErrInvalidPosition, len(g.Evals), g.Dims)
	}
	out := NewGrid(g.Dims.Extended())

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for r := 0; r < g.Dims.Rows; r++ {
		eg.Go(func() error {
			ext, err := dom.Extend(g.Row(r))
			if err != nil {
				return fmt.Errorf("row %d: %w", r, err)
			}
			copy(out.Row(r), ext)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Original returns the unextended grid embedded in the extended grid g.
func Original(g *Grid) (*Grid, error) {
	if g.Dims.Cols < 2 || !field.IsPowerOfTwo(g.Dims.Cols) {
		return nil, fmt.Errorf("%w: %s is not an extended grid", field.ErrDomainSize, g.Dims)
	}
	out := NewGrid(Dimensions{Rows: g.Dims.Rows, Cols: g.Dims.Cols / 2})
	for r := 0; r < g.Dims.Rows; r++ {
		copy(out.Row(r), g.Row(r)[:out.Dims.Cols])
	}
	return out, nil
}
