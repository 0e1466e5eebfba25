package field

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxDomainSize bounds the extended row width. Columns are addressed with a
// uint16, so an extended row holds at most 2^16 cells.
const MaxDomainSize = 1 << 16

const domainCacheSize = 32

var domainCache, _ = lru.New[int, *Domain](domainCacheSize)

// Domain describes the evaluation points of an extended row whose original
// width is n. The layout is systematic: column j < n is the original point
// w_n^j, column j >= n is the odd coset point w_2n * w_n^(j-n). Point is the
// only place that maps a column to its evaluation point.
type Domain struct {
	n      int
	base   *fft.Domain // size n, nil when n == 1
	shift  fr.Element  // w_2n
	points []fr.Element
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NewDomain returns the (cached) extended domain for rows of width n.
func NewDomain(n int) (*Domain, error) {
	if !IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: width %d is not a power of two", ErrDomainSize, n)
	}
	if 2*n > MaxDomainSize {
		return nil, fmt.Errorf("%w: extended width %d exceeds %d", ErrDomainSize, 2*n, MaxDomainSize)
	}
	if d, ok := domainCache.Get(n); ok {
		return d, nil
	}
	d := newDomain(n)
	domainCache.Add(n, d)
	return d, nil
}

func newDomain(n int) *Domain {
	ext := fft.NewDomain(uint64(2 * n))
	d := &Domain{n: n, shift: ext.Generator}
	if n > 1 {
		d.base = fft.NewDomain(uint64(n))
	}

	var wn fr.Element
	wn.Square(&ext.Generator)

	d.points = make([]fr.Element, 2*n)
	d.points[0].SetOne()
	for j := 1; j < n; j++ {
		d.points[j].Mul(&d.points[j-1], &wn)
	}
	for j := 0; j < n; j++ {
		d.points[n+j].Mul(&d.points[j], &d.shift)
	}
	return d
}

// Width returns the original (unextended) row width n.
func (d *Domain) Width() int { return d.n }

// ExtendedWidth returns 2n.
func (d *Domain) ExtendedWidth() int { return 2 * d.n }

// Point returns the evaluation point of extended column col.
func (d *Domain) Point(col int) (fr.Element, error) {
	if col < 0 || col >= len(d.points) {
		return fr.Element{}, fmt.Errorf("%w: %d >= %d", ErrInvalidColumn, col, len(d.points))
	}
	return d.points[col], nil
}

// Coefficients interpolates the n original evaluations of a row and returns
// the coefficients of the unique polynomial of degree < n, lowest first.
func (d *Domain) Coefficients(row []fr.Element) ([]fr.Element, error) {
	if len(row) != d.n {
		return nil, fmt.Errorf("%w: row has %d values, want %d", ErrDomainSize, len(row), d.n)
	}
	coeffs := make([]fr.Element, d.n)
	copy(coeffs, row)
	if d.base == nil {
		return coeffs, nil
	}
	d.base.FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)
	return coeffs, nil
}

// Extend returns the 2n evaluations of the row polynomial in the systematic
// layout: the original n values followed by the n odd coset values.
func (d *Domain) Extend(row []fr.Element) ([]fr.Element, error) {
	coeffs, err := d.Coefficients(row)
	if err != nil {
		return nil, err
	}
	out := make([]fr.Element, 2*d.n)
	copy(out, row)
	copy(out[d.n:], d.evalCoset(coeffs))
	return out, nil
}

// evalCoset evaluates coefficients on w_2n * <w_n>. coeffs is consumed.
func (d *Domain) evalCoset(coeffs []fr.Element) []fr.Element {
	var s fr.Element
	s.SetOne()
	for i := range coeffs {
		coeffs[i].Mul(&coeffs[i], &s)
		s.Mul(&s, &d.shift)
	}
	if d.base != nil {
		d.base.FFT(coeffs, fft.DIF)
		fft.BitReverse(coeffs)
	}
	return coeffs
}

// Evaluate computes p(x) for coefficients in ascending order.
func Evaluate(coeffs []fr.Element, x *fr.Element) fr.Element {
	var acc fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, x)
		acc.Add(&acc, &coeffs[i])
	}
	return acc
}

// Interpolate recovers the full extended row from exactly n known values at
// the distinct extended columns cols. Any subset of n columns determines the
// row polynomial uniquely.
func (d *Domain) Interpolate(cols []int, values []fr.Element) ([]fr.Element, error) {
	if len(cols) != d.n || len(values) != d.n {
		return nil, fmt.Errorf("%w: need exactly %d points, got %d cols and %d values",
			ErrDomainSize, d.n, len(cols), len(values))
	}
	known := make([]bool, 2*d.n)
	systematic := true
	for i, c := range cols {
		if c < 0 || c >= 2*d.n {
			return nil, fmt.Errorf("%w: %d >= %d", ErrInvalidColumn, c, 2*d.n)
		}
		if known[c] {
			return nil, fmt.Errorf("%w: duplicate column %d", ErrInvalidColumn, c)
		}
		known[c] = true
		if c != i {
			systematic = false
		}
	}
	if systematic {
		return d.Extend(values)
	}

	// Barycentric weights w_i = 1 / prod_{k != i} (x_i - x_k).
	xs := make([]fr.Element, d.n)
	for i, c := range cols {
		xs[i] = d.points[c]
	}
	denoms := make([]fr.Element, d.n)
	var diff fr.Element
	for i := range xs {
		denoms[i].SetOne()
		for k := range xs {
			if k == i {
				continue
			}
			diff.Sub(&xs[i], &xs[k])
			denoms[i].Mul(&denoms[i], &diff)
		}
	}
	weights := fr.BatchInvert(denoms)
	wy := make([]fr.Element, d.n)
	for i := range wy {
		wy[i].Mul(&weights[i], &values[i])
	}

	out := make([]fr.Element, 2*d.n)
	for i, c := range cols {
		out[c] = values[i]
	}
	diffs := make([]fr.Element, d.n)
	for t := range out {
		if known[t] {
			continue
		}
		var l fr.Element
		l.SetOne()
		for i := range xs {
			diffs[i].Sub(&d.points[t], &xs[i])
			l.Mul(&l, &diffs[i])
		}
		inv := fr.BatchInvert(diffs)
		var sum, term fr.Element
		for i := range inv {
			term.Mul(&wy[i], &inv[i])
			sum.Add(&sum, &term)
		}
		out[t].Mul(&l, &sum)
	}
	return out, nil
}
