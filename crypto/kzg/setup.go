package kzg

import (
	"bufio"
	"fmt"
	"math/big"
	"math/bits"
	"os"
	"sync"

	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
)

// Setup is a structured reference string shared by the schemes of every
// row width it is large enough for. Grids of one configuration vary in
// width from block to block, so schemes are built on demand and cached.
type Setup struct {
	srs *gnarkkzg.SRS

	mu      sync.Mutex
	schemes map[int]*KZG
}

// NewSetup wraps an existing reference string.
func NewSetup(srs *gnarkkzg.SRS) *Setup {
	return &Setup{srs: srs, schemes: make(map[int]*KZG)}
}

// NewInsecureSetup derives a reference string for widths up to maxCols
// from a known secret. For tests and local simulation only.
func NewInsecureSetup(maxCols int, secret *big.Int) (*Setup, error) {
	srs, err := gnarkkzg.NewSRS(uint64(maxCols)+1, secret)
	if err != nil {
		return nil, fmt.Errorf("kzg: setup: %w", err)
	}
	return NewSetup(srs), nil
}

// LoadSetup reads a reference string serialized by Save.
func LoadSetup(path string) (*Setup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	srs := new(gnarkkzg.SRS)
	if _, err := srs.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("kzg: read setup %s: %w", path, err)
	}
	return NewSetup(srs), nil
}

// Save writes the reference string to path.
func (s *Setup) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := s.srs.WriteTo(w); err != nil {
		f.Close()
		return fmt.Errorf("kzg: write setup %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Points returns the number of G1 points in the reference string.
func (s *Setup) Points() int { return len(s.srs.Pk.G1) }

// MaxWidth returns the largest unextended row width the setup supports:
// the largest power of two not above Points. It is 0 for an empty setup.
func (s *Setup) MaxWidth() int {
	n := s.Points()
	if n < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// Scheme returns the scheme for rows of cols unextended columns.
func (s *Setup) Scheme(cols int) (*KZG, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.schemes[cols]; ok {
		return k, nil
	}
	k, err := NewKZG(s.srs, cols)
	if err != nil {
		return nil, err
	}
	s.schemes[cols] = k
	return k, nil
}
