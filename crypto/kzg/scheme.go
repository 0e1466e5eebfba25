// Package kzg commits to the rows of an extended grid.
//
// The commitment math sits behind the Scheme capability so that the grid
// pipeline does not depend on a particular commitment construction. KZG is
// the production implementation on BLS12-381; Generator produces the
// per-row commitment sequence for a block.
package kzg

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// CommitmentSize is the size of a compressed G1 commitment.
	CommitmentSize = 48

	// ProofSize is the size of a serialized opening proof: a compressed G1
	// witness followed by the 32-byte claimed value.
	ProofSize = CommitmentSize + fr.Bytes
)

var (
	ErrCommitmentFailure   = errors.New("kzg: commitment failed")
	ErrInvalidCommitment   = errors.New("kzg: invalid commitment encoding")
	ErrInvalidProof        = errors.New("kzg: invalid proof encoding")
	ErrNotLowDegree        = errors.New("kzg: row is not a low-degree extension")
	ErrRowWidth            = errors.New("kzg: row width does not match scheme")
	ErrSetupTooSmall       = errors.New("kzg: setup too small for row width")
	ErrCommitmentsMismatch = errors.New("kzg: commitment count does not match rows")
)

// Commitment is a compressed G1 point binding one extended row.
type Commitment [CommitmentSize]byte

func (c Commitment) String() string { return hexutil.Encode(c[:]) }

// MarshalText implements encoding.TextMarshaler.
func (c Commitment) MarshalText() ([]byte, error) { return hexutil.Bytes(c[:]).MarshalText() }

// UnmarshalText parses a 0x-prefixed hex commitment.
func (c *Commitment) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Commitment", input, c[:])
}

// Proof is an opening of a row polynomial at one extended column.
type Proof struct {
	Witness [CommitmentSize]byte
	Value   [fr.Bytes]byte
}

// Bytes serializes the proof as witness || value.
func (p Proof) Bytes() []byte {
	out := make([]byte, 0, ProofSize)
	out = append(out, p.Witness[:]...)
	return append(out, p.Value[:]...)
}

// ProofFromBytes parses a serialized proof.
func ProofFromBytes(b []byte) (Proof, error) {
	var p Proof
	if len(b) != ProofSize {
		return p, ErrInvalidProof
	}
	copy(p.Witness[:], b[:CommitmentSize])
	copy(p.Value[:], b[CommitmentSize:])
	return p, nil
}

// Scheme is the commitment capability consumed by the grid pipeline. Rows
// are passed as extended evaluations: the original values followed by the
// parity values.
type Scheme interface {
	// Commit binds an extended row.
	Commit(evals []fr.Element) (Commitment, error)

	// Open proves the value of the row at extended column col.
	Open(evals []fr.Element, col int) (Proof, error)

	// Verify checks that value is the row's value at col. A well-formed
	// but wrong proof yields (false, nil).
	Verify(c Commitment, col int, value fr.Element, proof Proof) (bool, error)
}
