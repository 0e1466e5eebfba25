package recovery

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/gammazero/workerpool"

	"github.com/eth2030/dagrid/das/grid"
)

// Reconstruct recovers the whole extended grid from cells. dims is the
// unextended shape; cell positions address the extended grid. Rows are
// reconstructed concurrently. Every failing row contributes its own error
// to the joined result, so the caller learns all shortfalls at once.
func Reconstruct(dims grid.Dimensions, cells []grid.DataCell) (*grid.Grid, error) {
	if dims.Rows < 1 {
		return nil, fmt.Errorf("%w: %s grid", grid.ErrInvalidPosition, dims)
	}
	byRow := make([][]grid.DataCell, dims.Rows)
	for _, cell := range cells {
		r := int(cell.Position.Row)
		if r >= dims.Rows {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCell, cell.Position, grid.ErrInvalidPosition)
		}
		byRow[r] = append(byRow[r], cell)
	}

	var (
		rows = make([][]fr.Element, dims.Rows)
		errs = make([]error, dims.Rows)
		wp   = workerpool.New(min(runtime.GOMAXPROCS(0), dims.Rows))
	)
	for r := range byRow {
		wp.Submit(func() {
			rows[r], errs[r] = ReconstructRow(dims, r, byRow[r])
		})
	}
	wp.StopWait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	ext := grid.NewGrid(dims.Extended())
	for r, row := range rows {
		copy(ext.Row(r), row)
	}
	return ext, nil
}
