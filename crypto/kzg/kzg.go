package kzg

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"

	"github.com/eth2030/dagrid/das/field"
)

// KZG implements Scheme with KZG commitments over BLS12-381. Each extended
// row of width 2n is the evaluation table of a polynomial of degree < n; the
// scheme commits to that polynomial and opens it at the column's point of
// the extended domain.
type KZG struct {
	pk  gnarkkzg.ProvingKey
	vk  gnarkkzg.VerifyingKey
	dom *field.Domain
}

var _ Scheme = (*KZG)(nil)

// NewKZG returns a scheme for grids with cols unextended columns, using the
// given structured reference string.
func NewKZG(srs *gnarkkzg.SRS, cols int) (*KZG, error) {
	dom, err := field.NewDomain(cols)
	if err != nil {
		return nil, err
	}
	if len(srs.Pk.G1) < cols {
		return nil, fmt.Errorf("%w: %d points, need %d", ErrSetupTooSmall, len(srs.Pk.G1), cols)
	}
	return &KZG{pk: srs.Pk, vk: srs.Vk, dom: dom}, nil
}

// NewInsecureKZG builds a scheme from a reference string generated with a
// known secret. For tests and devnets only: anyone holding secret can forge
// openings.
func NewInsecureKZG(cols int, secret *big.Int) (*KZG, error) {
	srs, err := gnarkkzg.NewSRS(uint64(cols)+1, secret)
	if err != nil {
		return nil, fmt.Errorf("kzg: setup: %w", err)
	}
	return NewKZG(srs, cols)
}

// Width returns the unextended row width the scheme is bound to.
func (k *KZG) Width() int { return k.dom.Width() }

// coefficients checks that evals is an extended row of this scheme's width
// and returns the row polynomial.
func (k *KZG) coefficients(evals []fr.Element) ([]fr.Element, error) {
	if len(evals) != k.dom.ExtendedWidth() {
		return nil, fmt.Errorf("%w: %d values, want %d", ErrRowWidth, len(evals), k.dom.ExtendedWidth())
	}
	n := k.dom.Width()
	ext, err := k.dom.Extend(evals[:n])
	if err != nil {
		return nil, err
	}
	for i := n; i < len(evals); i++ {
		if !ext[i].Equal(&evals[i]) {
			return nil, fmt.Errorf("%w: column %d", ErrNotLowDegree, i)
		}
	}
	return k.dom.Coefficients(evals[:n])
}

// Commit implements Scheme.
func (k *KZG) Commit(evals []fr.Element) (Commitment, error) {
	var c Commitment
	coeffs, err := k.coefficients(evals)
	if err != nil {
		return c, err
	}
	digest, err := gnarkkzg.Commit(coeffs, k.pk)
	if err != nil {
		return c, err
	}
	return Commitment(digest.Bytes()), nil
}

// Open implements Scheme.
func (k *KZG) Open(evals []fr.Element, col int) (Proof, error) {
	var p Proof
	coeffs, err := k.coefficients(evals)
	if err != nil {
		return p, err
	}
	point, err := k.dom.Point(col)
	if err != nil {
		return p, err
	}
	op, err := gnarkkzg.Open(coeffs, point, k.pk)
	if err != nil {
		return p, err
	}
	p.Witness = op.H.Bytes()
	p.Value = op.ClaimedValue.Bytes()
	return p, nil
}

// Verify implements Scheme.
func (k *KZG) Verify(c Commitment, col int, value fr.Element, proof Proof) (bool, error) {
	point, err := k.dom.Point(col)
	if err != nil {
		return false, err
	}
	var digest bls12381.G1Affine
	if _, err := digest.SetBytes(c[:]); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}
	var op gnarkkzg.OpeningProof
	if _, err := op.H.SetBytes(proof.Witness[:]); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	claimed, err := field.ElementFromBytes(proof.Value[:])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if !claimed.Equal(&value) {
		return false, nil
	}
	op.ClaimedValue = claimed
	if err := gnarkkzg.Verify(&digest, &op, point, k.vk); err != nil {
		return false, nil
	}
	return true, nil
}
