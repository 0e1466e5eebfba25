package kzg

import (
	"encoding/json"
	"errors"
	"math/big"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"

	"github.com/eth2030/dagrid/das/field"
	"github.com/eth2030/dagrid/das/grid"
)

func testScheme(t *testing.T, cols int) *KZG {
	t.Helper()
	k, err := NewInsecureKZG(cols, big.NewInt(42))
	if err != nil {
		t.Fatalf("NewInsecureKZG: %v", err)
	}
	return k
}

func extendedRow(t *testing.T, seed byte, n int) []fr.Element {
	t.Helper()
	rng := rand.New(rand.NewChaCha8([32]byte{seed}))
	row := make([]fr.Element, n)
	for i := range row {
		row[i].SetUint64(rng.Uint64())
	}
	dom, _ := field.NewDomain(n)
	ext, err := dom.Extend(row)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	return ext
}

func TestKZGOpenVerifyAllColumns(t *testing.T) {
	const n = 8
	k := testScheme(t, n)
	row := extendedRow(t, 1, n)

	c, err := k.Commit(row)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for col := 0; col < 2*n; col++ {
		proof, err := k.Open(row, col)
		if err != nil {
			t.Fatalf("Open(%d): %v", col, err)
		}
		if err := proof.ValidateWitness(); err != nil {
			t.Fatalf("ValidateWitness(%d): %v", col, err)
		}
		ok, err := k.Verify(c, col, row[col], proof)
		if err != nil || !ok {
			t.Fatalf("Verify(%d) = %v, %v", col, ok, err)
		}
	}
}

func TestKZGVerifyRejectsWrongValue(t *testing.T) {
	const n = 4
	k := testScheme(t, n)
	row := extendedRow(t, 2, n)
	c, _ := k.Commit(row)
	proof, _ := k.Open(row, 5)

	var wrong fr.Element
	wrong.Add(&row[5], new(fr.Element).SetOne())
	if ok, err := k.Verify(c, 5, wrong, proof); ok || err != nil {
		t.Fatalf("wrong value: Verify = %v, %v", ok, err)
	}
	// Right value, proof for another column.
	if ok, _ := k.Verify(c, 4, row[5], proof); ok {
		t.Fatal("proof verified at the wrong column")
	}
}

func TestKZGVerifyRejectsOtherRow(t *testing.T) {
	const n = 4
	k := testScheme(t, n)
	a, b := extendedRow(t, 3, n), extendedRow(t, 4, n)
	ca, _ := k.Commit(a)
	proof, _ := k.Open(b, 1)
	if ok, _ := k.Verify(ca, 1, b[1], proof); ok {
		t.Fatal("proof for row b verified against row a")
	}
}

func TestKZGRejectsNonLowDegreeRow(t *testing.T) {
	const n = 4
	k := testScheme(t, n)
	row := extendedRow(t, 5, n)
	row[6].SetUint64(1)
	if _, err := k.Commit(row); !errors.Is(err, ErrNotLowDegree) {
		t.Fatalf("err = %v, want ErrNotLowDegree", err)
	}
	if _, err := k.Commit(row[:4]); !errors.Is(err, ErrRowWidth) {
		t.Fatalf("err = %v, want ErrRowWidth", err)
	}
}

func TestKZGZeroRowCommitment(t *testing.T) {
	k := testScheme(t, 4)
	c, err := k.Commit(make([]fr.Element, 8))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("zero-row commitment invalid: %v", err)
	}
}

func TestCommitmentValidateGarbage(t *testing.T) {
	var c Commitment
	for i := range c {
		c[i] = 0x11
	}
	if err := c.Validate(); !errors.Is(err, ErrInvalidCommitment) {
		t.Fatalf("err = %v, want ErrInvalidCommitment", err)
	}
}

func TestProofBytes(t *testing.T) {
	k := testScheme(t, 2)
	row := extendedRow(t, 6, 2)
	p, _ := k.Open(row, 3)
	got, err := ProofFromBytes(p.Bytes())
	if err != nil {
		t.Fatalf("ProofFromBytes: %v", err)
	}
	if got != p {
		t.Fatal("proof bytes round trip mismatch")
	}
	if _, err := ProofFromBytes(make([]byte, 10)); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("err = %v, want ErrInvalidProof", err)
	}
}

func TestCommitmentJSON(t *testing.T) {
	k := testScheme(t, 2)
	c, _ := k.Commit(extendedRow(t, 10, 2))
	b, err := json.Marshal([]Commitment{c})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got []Commitment
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != 1 || got[0] != c {
		t.Fatalf("round trip = %v, want [%s]", got, c)
	}
	if err := json.Unmarshal([]byte(`["0x1234"]`), &got); err == nil {
		t.Fatal("short commitment accepted")
	}
}

func TestNewKZGSetup(t *testing.T) {
	srs, err := gnarkkzg.NewSRS(3, big.NewInt(7))
	if err != nil {
		t.Fatalf("NewSRS: %v", err)
	}
	k, err := NewKZG(srs, 2)
	if err != nil {
		t.Fatalf("NewKZG: %v", err)
	}
	if k.Width() != 2 {
		t.Fatalf("Width = %d, want 2", k.Width())
	}
	if _, err := NewKZG(srs, 8); !errors.Is(err, ErrSetupTooSmall) {
		t.Fatalf("err = %v, want ErrSetupTooSmall", err)
	}
	if _, err := NewKZG(srs, 3); !errors.Is(err, field.ErrDomainSize) {
		t.Fatalf("err = %v, want ErrDomainSize", err)
	}
}

func TestSetupSchemes(t *testing.T) {
	s, err := NewInsecureSetup(8, big.NewInt(42))
	if err != nil {
		t.Fatalf("NewInsecureSetup: %v", err)
	}
	if s.Points() != 9 {
		t.Fatalf("Points = %d, want 9", s.Points())
	}
	if s.MaxWidth() != 8 {
		t.Fatalf("MaxWidth = %d, want 8", s.MaxWidth())
	}
	if _, err := s.Scheme(s.MaxWidth()); err != nil {
		t.Fatalf("Scheme(MaxWidth): %v", err)
	}
	k4, err := s.Scheme(4)
	if err != nil {
		t.Fatalf("Scheme(4): %v", err)
	}
	if again, _ := s.Scheme(4); again != k4 {
		t.Fatal("Scheme(4) not cached")
	}
	if _, err := s.Scheme(16); !errors.Is(err, ErrSetupTooSmall) {
		t.Fatalf("err = %v, want ErrSetupTooSmall", err)
	}

	// A narrower scheme from a shared setup commits like a dedicated one.
	row := extendedRow(t, 8, 4)
	got, _ := k4.Commit(row)
	want, _ := testScheme(t, 4).Commit(row)
	if got != want {
		t.Fatal("shared setup commitment differs")
	}
}

func TestSetupSaveLoad(t *testing.T) {
	s, _ := NewInsecureSetup(4, big.NewInt(42))
	path := filepath.Join(t.TempDir(), "setup.srs")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadSetup(path)
	if err != nil {
		t.Fatalf("LoadSetup: %v", err)
	}
	a, _ := s.Scheme(4)
	b, err := loaded.Scheme(4)
	if err != nil {
		t.Fatalf("Scheme: %v", err)
	}
	row := extendedRow(t, 9, 4)
	ca, _ := a.Commit(row)
	cb, _ := b.Commit(row)
	if ca != cb {
		t.Fatal("loaded setup commits differently")
	}
	proof, _ := b.Open(row, 6)
	if ok, err := a.Verify(ca, 6, row[6], proof); !ok || err != nil {
		t.Fatalf("cross-setup Verify = %v, %v", ok, err)
	}
	if _, err := LoadSetup(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("LoadSetup of a missing file succeeded")
	}
}

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

type failingScheme struct {
	Scheme
	failRow int
}

func (f *failingScheme) Commit(evals []fr.Element) (Commitment, error) {
	if evals[0].IsUint64() && evals[0].Uint64() == uint64(f.failRow) {
		return Commitment{}, errors.New("boom")
	}
	return Commitment{byte(evals[0].Uint64())}, nil
}

func TestGeneratorCommitOnePerRow(t *testing.T) {
	k := testScheme(t, 4)
	g := grid.NewGrid(grid.Dimensions{Rows: 4, Cols: 4})
	for i := range g.Evals {
		g.Evals[i].SetUint64(uint64(i * 3))
	}
	ext, err := grid.Extend(g)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	gen := NewGenerator(k)
	cs, err := gen.Commit(ext)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(cs) != 4 {
		t.Fatalf("got %d commitments, want 4", len(cs))
	}
	for r := range cs {
		want, _ := k.Commit(ext.Row(r))
		if cs[r] != want {
			t.Fatalf("row %d commitment out of order", r)
		}
	}

	p := grid.Position{Row: 2, Col: 6}
	proof, err := gen.Open(ext, p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v, _ := ext.At(p)
	ok, err := gen.VerifyCell(cs, grid.NewDataCell(p, &v), proof)
	if err != nil || !ok {
		t.Fatalf("VerifyCell = %v, %v", ok, err)
	}
	if _, err := gen.VerifyCell(cs[:2], grid.NewDataCell(p, &v), proof); !errors.Is(err, ErrCommitmentsMismatch) {
		t.Fatalf("err = %v, want ErrCommitmentsMismatch", err)
	}
}

func TestGeneratorPropagatesFailure(t *testing.T) {
	g := grid.NewGrid(grid.Dimensions{Rows: 4, Cols: 2})
	for r := 0; r < 4; r++ {
		g.Evals[g.Dims.Index(r, 0)].SetUint64(uint64(r))
	}
	gen := NewGenerator(&failingScheme{failRow: 2})
	_, err := gen.Commit(g)
	if !errors.Is(err, ErrCommitmentFailure) {
		t.Fatalf("err = %v, want ErrCommitmentFailure", err)
	}
}
