// Package recovery reconstructs extended grid rows from sampled cells.
//
// Extension runs along rows, so a row of the extended grid is the
// erasure-coded unit: any Cols of its 2*Cols cells determine it. Recovery
// never guesses. Too few cells yield an InsufficientDataError naming the
// shortfall; contradicting cells yield an InconsistentDataError naming the
// positions involved. Cells that fit no single row are all reported, since
// the faulty one cannot be told apart from the rest.
package recovery

import (
	"fmt"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eth2030/dagrid/das/field"
	"github.com/eth2030/dagrid/das/grid"
)

// State of a row collection.
type State int

const (
	Collecting State = iota
	Sufficient
	Insufficient
	Inconsistent
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Sufficient:
		return "sufficient"
	case Insufficient:
		return "insufficient"
	case Inconsistent:
		return "inconsistent"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Collector gathers the cells of one extended row and reconstructs it once
// finished. Finish moves it into one of the terminal states; cells added
// afterwards are rejected. A Collector is not safe for concurrent use.
type Collector struct {
	row       int
	dom       *field.Domain
	values    map[int]fr.Element
	conflicts []grid.Position

	state  State
	result []fr.Element
	err    error
}

// NewCollector returns a collector for row of an extended grid whose
// unextended width is cols.
func NewCollector(row, cols int) (*Collector, error) {
	dom, err := field.NewDomain(cols)
	if err != nil {
		return nil, err
	}
	return &Collector{
		row:    row,
		dom:    dom,
		values: make(map[int]fr.Element, cols),
	}, nil
}

// Row returns the row index being collected.
func (c *Collector) Row() int { return c.row }

// State returns the current state.
func (c *Collector) State() State { return c.state }

// Have returns the number of distinct positions collected.
func (c *Collector) Have() int { return len(c.values) }

// Need returns the recovery threshold, the unextended row width.
func (c *Collector) Need() int { return c.dom.Width() }

// Ready reports whether Finish would attempt interpolation.
func (c *Collector) Ready() bool {
	return len(c.values) >= c.dom.Width() && len(c.conflicts) == 0
}

// Add records a cell. Cells outside the row or with undecodable data are
// rejected with an error and leave the collector unchanged. A second cell
// for a known position with a different value is recorded as a conflict.
func (c *Collector) Add(cell grid.DataCell) error {
	if c.state != Collecting {
		return ErrCollectorDone
	}
	if int(cell.Position.Row) != c.row {
		return fmt.Errorf("%w: %s does not belong to row %d", ErrInvalidCell, cell.Position, c.row)
	}
	col := int(cell.Position.Col)
	if col >= c.dom.ExtendedWidth() {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCell, cell.Position, grid.ErrInvalidPosition)
	}
	v, err := cell.Element()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCell, err)
	}
	if prev, ok := c.values[col]; ok {
		if !prev.Equal(&v) && !slices.Contains(c.conflicts, cell.Position) {
			c.conflicts = append(c.conflicts, cell.Position)
		}
		return nil
	}
	c.values[col] = v
	return nil
}

// Finish reconstructs the row. It returns the full extended row in the
// Sufficient state and a typed error otherwise. Repeated calls return the
// same outcome.
func (c *Collector) Finish() ([]fr.Element, error) {
	if c.state != Collecting {
		return c.result, c.err
	}
	c.result, c.err = c.finish()
	switch {
	case c.err == nil:
		c.state = Sufficient
	case c.insufficient():
		c.state = Insufficient
	default:
		c.state = Inconsistent
	}
	return c.result, c.err
}

func (c *Collector) insufficient() bool {
	_, ok := c.err.(*InsufficientDataError)
	return ok
}

func (c *Collector) finish() ([]fr.Element, error) {
	if len(c.conflicts) > 0 {
		return nil, &InconsistentDataError{Row: c.row, Positions: slices.Clone(c.conflicts)}
	}
	n := c.dom.Width()
	if len(c.values) < n {
		return nil, &InsufficientDataError{Row: c.row, Have: len(c.values), Need: n}
	}

	cols := make([]int, 0, len(c.values))
	for col := range c.values {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	basis := cols[:n]
	vals := make([]fr.Element, n)
	for i, col := range basis {
		vals[i] = c.values[col]
	}
	row, err := c.dom.Interpolate(basis, vals)
	if err != nil {
		return nil, err
	}

	for _, col := range cols[n:] {
		v := c.values[col]
		if !row[col].Equal(&v) {
			// Any n cells define a row, so a mismatch cannot be pinned on one
			// cell: every supplied position is reported.
			return nil, &InconsistentDataError{Row: c.row, Positions: c.positions(cols)}
		}
	}
	return row, nil
}

func (c *Collector) positions(cols []int) []grid.Position {
	out := make([]grid.Position, len(cols))
	for i, col := range cols {
		out[i] = grid.Position{Row: uint32(c.row), Col: uint16(col)}
	}
	return out
}

// ReconstructRow recovers one extended row from its cells. dims is the
// unextended shape.
func ReconstructRow(dims grid.Dimensions, row int, cells []grid.DataCell) ([]fr.Element, error) {
	if row < 0 || row >= dims.Rows {
		return nil, fmt.Errorf("%w: row %d in %s grid", grid.ErrInvalidPosition, row, dims)
	}
	c, err := NewCollector(row, dims.Cols)
	if err != nil {
		return nil, err
	}
	for _, cell := range cells {
		if err := c.Add(cell); err != nil {
			return nil, err
		}
	}
	return c.Finish()
}
