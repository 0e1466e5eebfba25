package kzg

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

// Validate checks that the commitment is a canonical compressed G1 point in
// the prime-order subgroup. Light clients run this on published
// commitments before using them to verify cells.
func (c Commitment) Validate() error {
	return validateG1(c[:])
}

// ValidateWitness checks the witness point of a proof the same way.
func (p Proof) ValidateWitness() error {
	if err := validateG1(p.Witness[:]); err != nil {
		return fmt.Errorf("%w: witness", ErrInvalidProof)
	}
	return nil
}

// compressedInfinity is the encoding of the identity, the commitment of an
// all-zero row.
var compressedInfinity = [CommitmentSize]byte{0xc0}

func validateG1(b []byte) error {
	if [CommitmentSize]byte(b) == compressedInfinity {
		return nil
	}
	pt := new(blst.P1Affine).Uncompress(b)
	if pt == nil {
		return fmt.Errorf("%w: not a compressed G1 point", ErrInvalidCommitment)
	}
	if !pt.InG1() {
		return fmt.Errorf("%w: point not in G1 subgroup", ErrInvalidCommitment)
	}
	return nil
}
