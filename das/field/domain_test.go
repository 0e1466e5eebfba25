package field

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

func randomRow(rng *rand.Rand, n int) []fr.Element {
	row := make([]fr.Element, n)
	for i := range row {
		row[i].SetUint64(rng.Uint64())
	}
	return row
}

func TestNewDomainSizes(t *testing.T) {
	for _, n := range []int{0, 3, 6, MaxDomainSize} {
		if _, err := NewDomain(n); !errors.Is(err, ErrDomainSize) {
			t.Errorf("NewDomain(%d) err = %v, want ErrDomainSize", n, err)
		}
	}
	d, err := NewDomain(MaxDomainSize / 2)
	if err != nil {
		t.Fatalf("NewDomain(max/2): %v", err)
	}
	if d.ExtendedWidth() != MaxDomainSize {
		t.Fatalf("ExtendedWidth = %d, want %d", d.ExtendedWidth(), MaxDomainSize)
	}
}

func TestDomainPointsDistinct(t *testing.T) {
	d, _ := NewDomain(16)
	seen := make(map[[BytesPerElement]byte]int)
	for j := 0; j < d.ExtendedWidth(); j++ {
		p, err := d.Point(j)
		if err != nil {
			t.Fatalf("Point(%d): %v", j, err)
		}
		if prev, ok := seen[p.Bytes()]; ok {
			t.Fatalf("points %d and %d coincide", prev, j)
		}
		seen[p.Bytes()] = j
	}
	if _, err := d.Point(32); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("Point(32) err = %v, want ErrInvalidColumn", err)
	}
}

func TestExtendMatchesPolynomial(t *testing.T) {
	rng := rand.New(rand.NewChaCha8([32]byte{1}))
	for _, n := range []int{1, 2, 8, 64} {
		d, _ := NewDomain(n)
		row := randomRow(rng, n)
		ext, err := d.Extend(row)
		if err != nil {
			t.Fatalf("Extend: %v", err)
		}
		if len(ext) != 2*n {
			t.Fatalf("len = %d, want %d", len(ext), 2*n)
		}
		coeffs, _ := d.Coefficients(row)
		for j := range ext {
			x, _ := d.Point(j)
			want := Evaluate(coeffs, &x)
			if !ext[j].Equal(&want) {
				t.Fatalf("n=%d col %d: got %s, want %s", n, j, ext[j].String(), want.String())
			}
		}
		for j := 0; j < n; j++ {
			if !ext[j].Equal(&row[j]) {
				t.Fatalf("n=%d col %d: original value not preserved", n, j)
			}
		}
	}
}

func TestExtendWrongWidth(t *testing.T) {
	d, _ := NewDomain(4)
	if _, err := d.Extend(make([]fr.Element, 3)); !errors.Is(err, ErrDomainSize) {
		t.Fatalf("err = %v, want ErrDomainSize", err)
	}
}

func TestInterpolateAnySubset(t *testing.T) {
	rng := rand.New(rand.NewChaCha8([32]byte{2}))
	const n = 16
	d, _ := NewDomain(n)
	ext, _ := d.Extend(randomRow(rng, n))

	subsets := [][]int{
		// parity half only
		{16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31},
		// every other column
		{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30},
		// systematic prefix
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	}
	perm := rng.Perm(2 * n)
	subsets = append(subsets, perm[:n])

	for si, cols := range subsets {
		vals := make([]fr.Element, n)
		for i, c := range cols {
			vals[i] = ext[c]
		}
		got, err := d.Interpolate(cols, vals)
		if err != nil {
			t.Fatalf("subset %d: %v", si, err)
		}
		for j := range ext {
			if !got[j].Equal(&ext[j]) {
				t.Fatalf("subset %d col %d mismatch", si, j)
			}
		}
	}
}

func TestInterpolateRejectsBadInput(t *testing.T) {
	d, _ := NewDomain(2)
	vals := make([]fr.Element, 2)
	if _, err := d.Interpolate([]int{1, 1}, vals); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("duplicate err = %v, want ErrInvalidColumn", err)
	}
	if _, err := d.Interpolate([]int{0, 4}, vals); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("range err = %v, want ErrInvalidColumn", err)
	}
	if _, err := d.Interpolate([]int{0}, vals[:1]); !errors.Is(err, ErrDomainSize) {
		t.Errorf("count err = %v, want ErrDomainSize", err)
	}
}
