// Package sampling selects grid positions to publish or request and turns
// them into DataCells.
//
// Sampling is a pure function of the grid shape, the policy and an injected
// random source: the same seed always yields the same positions.
package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/eth2030/dagrid/das/field"
	"github.com/eth2030/dagrid/das/grid"
)

var (
	ErrInvalidPolicy = errors.New("sampling: invalid policy")
	ErrInvalidShape  = errors.New("sampling: invalid grid shape")
)

// Kind selects how positions are drawn.
type Kind int

const (
	// KindPerColumn draws Count distinct rows in every column.
	KindPerColumn Kind = iota
	// KindPerRow draws Count distinct columns in every row. Drawing the
	// unextended width per row of an extended grid is what reconstruction
	// needs.
	KindPerRow
	// KindTotal draws Count distinct positions over the whole grid.
	KindTotal
)

func (k Kind) String() string {
	switch k {
	case KindPerColumn:
		return "per-column"
	case KindPerRow:
		return "per-row"
	case KindTotal:
		return "total"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Policy is a sampling policy. The count is protocol configuration.
type Policy struct {
	Kind  Kind
	Count int
}

// PerColumn returns a policy drawing k rows in every column.
func PerColumn(k int) Policy { return Policy{Kind: KindPerColumn, Count: k} }

// PerRow returns a policy drawing k columns in every row.
func PerRow(k int) Policy { return Policy{Kind: KindPerRow, Count: k} }

// Total returns a policy drawing n positions in the whole grid.
func Total(n int) Policy { return Policy{Kind: KindTotal, Count: n} }

// ParsePolicy parses a policy kind name as written in configuration.
func ParsePolicy(kind string, count int) (Policy, error) {
	var p Policy
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "per-column", "column":
		p = PerColumn(count)
	case "per-row", "row":
		p = PerRow(count)
	case "total":
		p = Total(count)
	default:
		return p, fmt.Errorf("%w: unknown kind %q", ErrInvalidPolicy, kind)
	}
	return p, p.Validate()
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.Kind < KindPerColumn || p.Kind > KindTotal {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, p.Kind)
	}
	if p.Count < 1 {
		return fmt.Errorf("%w: count %d", ErrInvalidPolicy, p.Count)
	}
	return nil
}

func (p Policy) String() string { return fmt.Sprintf("%s:%d", p.Kind, p.Count) }

// NewRand returns a ChaCha8 generator seeded with seed.
func NewRand(seed [32]byte) *rand.Rand {
	return rand.New(rand.NewChaCha8(seed))
}

// SeedFromHash derives a sampling seed from a block hash and a caller tag
// (for example a node identity), as keccak256(tag || hash).
func SeedFromHash(hash common.Hash, tag []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(tag)
	h.Write(hash[:])
	var seed [32]byte
	h.Sum(seed[:0])
	return seed
}

// Sample draws positions of a grid of shape dims according to p. The result
// has no duplicates. Lines shorter than the requested count are returned
// whole, each index exactly once.
func Sample(dims grid.Dimensions, p Policy, rng *rand.Rand) ([]grid.Position, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if dims.Rows < 1 || dims.Cols < 1 || dims.Cols > field.MaxDomainSize {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShape, dims)
	}

	var out []grid.Position
	switch p.Kind {
	case KindPerColumn:
		for c := 0; c < dims.Cols; c++ {
			for _, r := range sampleUnique(rng, p.Count, dims.Rows) {
				out = append(out, grid.Position{Row: uint32(r), Col: uint16(c)})
			}
		}
	case KindPerRow:
		for r := 0; r < dims.Rows; r++ {
			for _, c := range sampleUnique(rng, p.Count, dims.Cols) {
				out = append(out, grid.Position{Row: uint32(r), Col: uint16(c)})
			}
		}
	case KindTotal:
		for _, i := range sampleUnique(rng, p.Count, dims.Size()) {
			out = append(out, dims.Position(i))
		}
	}
	return out, nil
}

// sampleUnique draws k distinct values from [0, n) in draw order. When
// k >= n every value is returned once, in random order.
func sampleUnique(rng *rand.Rand, k, n int) []int {
	if k >= n {
		return rng.Perm(n)
	}
	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for len(out) < k {
		v := rng.IntN(n)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Cells pairs each position with the serialized grid value.
func Cells(g *grid.Grid, positions []grid.Position) ([]grid.DataCell, error) {
	cells := make([]grid.DataCell, len(positions))
	for i, p := range positions {
		v, err := g.At(p)
		if err != nil {
			return nil, err
		}
		cells[i] = grid.NewDataCell(p, &v)
	}
	return cells, nil
}
