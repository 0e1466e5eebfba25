package kzg

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/eth2030/dagrid/das/grid"
)

// Generator produces one commitment per row of an extended grid.
type Generator struct {
	scheme  Scheme
	workers int
}

// NewGenerator returns a Generator committing with scheme, one goroutine
// per available CPU.
func NewGenerator(scheme Scheme) *Generator {
	return &Generator{scheme: scheme, workers: runtime.GOMAXPROCS(0)}
}

// Scheme returns the underlying commitment scheme.
func (g *Generator) Scheme() Scheme { return g.scheme }

// Commit returns the commitments of the rows of ext in row order. Rows are
// committed concurrently; the first scheme failure aborts the call and is
// returned wrapped in ErrCommitmentFailure.
func (g *Generator) Commit(ext *grid.Grid) ([]Commitment, error) {
	out := make([]Commitment, ext.Dims.Rows)

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for r := 0; r < ext.Dims.Rows; r++ {
		eg.Go(func() error {
			c, err := g.scheme.Commit(ext.Row(r))
			if err != nil {
				return fmt.Errorf("%w: row %d: %w", ErrCommitmentFailure, r, err)
			}
			out[r] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Open proves the value of cell p of ext.
func (g *Generator) Open(ext *grid.Grid, p grid.Position) (Proof, error) {
	if !ext.Dims.Contains(p) {
		return Proof{}, fmt.Errorf("%w: %s in %s grid", grid.ErrInvalidPosition, p, ext.Dims)
	}
	return g.scheme.Open(ext.Row(int(p.Row)), int(p.Col))
}

// VerifyCell checks a cell against the commitment of its row.
func (g *Generator) VerifyCell(commitments []Commitment, cell grid.DataCell, proof Proof) (bool, error) {
	row := int(cell.Position.Row)
	if row >= len(commitments) {
		return false, fmt.Errorf("%w: row %d, %d commitments", ErrCommitmentsMismatch, row, len(commitments))
	}
	value, err := cell.Element()
	if err != nil {
		return false, err
	}
	return g.scheme.Verify(commitments[row], int(cell.Position.Col), value, proof)
}
