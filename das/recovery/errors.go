package recovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eth2030/dagrid/das/grid"
)

var (
	ErrInsufficientData = errors.New("recovery: insufficient data")
	ErrInconsistentData = errors.New("recovery: inconsistent data")
	ErrInvalidCell      = errors.New("recovery: invalid cell")
	ErrCollectorDone    = errors.New("recovery: collector already finished")
)

// InsufficientDataError reports a row with fewer distinct cells than the
// recovery threshold. The caller can request Need-Have more cells.
type InsufficientDataError struct {
	Row  int
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v: row %d has %d of %d cells, %d more needed",
		ErrInsufficientData, e.Row, e.Have, e.Need, e.Missing())
}

// Missing returns the shortfall.
func (e *InsufficientDataError) Missing() int { return e.Need - e.Have }

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// InconsistentDataError reports cells that no single low-degree row can
// explain. For two different values at one position, Positions holds the
// duplicated positions. Otherwise it holds every supplied position of the
// row.
type InconsistentDataError struct {
	Row       int
	Positions []grid.Position
}

func (e *InconsistentDataError) Error() string {
	ps := make([]string, len(e.Positions))
	for i, p := range e.Positions {
		ps[i] = p.String()
	}
	return fmt.Sprintf("%v: row %d conflicting cells [%s]",
		ErrInconsistentData, e.Row, strings.Join(ps, " "))
}

func (e *InconsistentDataError) Is(target error) bool { return target == ErrInconsistentData }
