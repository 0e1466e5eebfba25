// Package field maps raw payload bytes onto BLS12-381 scalar field elements
// and provides the FFT evaluation domains used to extend and recover grid
// rows.
package field

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/holiman/uint256"
)

const (
	// BytesPerElement is the serialized width of a field element: 32 bytes,
	// big-endian, canonical (strictly below the modulus).
	BytesPerElement = fr.Bytes

	// SafeBytes is the largest chunk that maps injectively into the field.
	// Any 31-byte string is below r, the 32nd byte is always zero.
	SafeBytes = BytesPerElement - 1
)

var (
	ErrEncoding      = errors.New("field: chunk exceeds codec capacity")
	ErrDecoding      = errors.New("field: invalid field element encoding")
	ErrInvalidChunk  = errors.New("field: chunk size out of range")
	ErrDomainSize    = errors.New("field: unsupported domain size")
	ErrInvalidColumn = errors.New("field: column outside extended domain")
)

// modulus is r as a 256-bit integer, used to reject non-canonical cell data.
var modulus = uint256.MustFromBig(fr.Modulus())

// Codec converts fixed-size byte chunks into field elements and back. A
// chunk occupies the low ChunkSize bytes of the big-endian element; shorter
// chunks are zero-filled on the right. The codec does not detect padding:
// callers find real data boundaries through the grid's DataLookup.
type Codec struct {
	chunkSize int
}

// NewCodec returns a codec for chunks of chunkSize bytes.
func NewCodec(chunkSize int) (*Codec, error) {
	if chunkSize < 1 || chunkSize > SafeBytes {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidChunk, chunkSize, SafeBytes)
	}
	return &Codec{chunkSize: chunkSize}, nil
}

// ChunkSize returns the number of payload bytes carried by one element.
func (c *Codec) ChunkSize() int { return c.chunkSize }

// Encode maps a chunk of at most ChunkSize bytes into a field element.
func (c *Codec) Encode(chunk []byte) (fr.Element, error) {
	var e fr.Element
	if len(chunk) > c.chunkSize {
		return e, fmt.Errorf("%w: %d bytes, capacity %d", ErrEncoding, len(chunk), c.chunkSize)
	}
	var buf [BytesPerElement]byte
	copy(buf[BytesPerElement-c.chunkSize:], chunk)
	// buf is below 2^248 < r, SetBytesCanonical cannot fail here.
	if err := e.SetBytesCanonical(buf[:]); err != nil {
		return e, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return e, nil
}

// Decode returns the ChunkSize payload bytes carried by e. Elements with
// non-zero bytes above the chunk window were not produced by Encode.
func (c *Codec) Decode(e fr.Element) ([]byte, error) {
	buf := e.Bytes()
	for i := 0; i < BytesPerElement-c.chunkSize; i++ {
		if buf[i] != 0 {
			return nil, fmt.Errorf("%w: value exceeds %d-byte chunk", ErrDecoding, c.chunkSize)
		}
	}
	out := make([]byte, c.chunkSize)
	copy(out, buf[BytesPerElement-c.chunkSize:])
	return out, nil
}

// ElementFromBytes parses serialized cell data. The input must be exactly
// BytesPerElement bytes holding a value strictly below the modulus.
func ElementFromBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != BytesPerElement {
		return e, fmt.Errorf("%w: length %d, want %d", ErrDecoding, len(b), BytesPerElement)
	}
	v := new(uint256.Int).SetBytes32(b)
	if v.Cmp(modulus) >= 0 {
		return e, fmt.Errorf("%w: value not below modulus", ErrDecoding)
	}
	e.SetBytes(b)
	return e, nil
}

// ElementBytes serializes e into its canonical 32-byte form.
func ElementBytes(e *fr.Element) []byte {
	b := e.Bytes()
	return b[:]
}
