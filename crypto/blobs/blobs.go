// Package blobs exports the original cells of a grid as EIP-4844 blobs, so
// a block's data can be posted to an L1 and checked with the Ethereum KZG
// ceremony setup.
//
// Cells are canonical scalars, so every 32-byte cell is a valid blob field
// element. Cells are copied row-major; the last blob is zero-padded.
package blobs

import (
	"errors"
	"fmt"

	goethkzg "github.com/crate-crypto/go-eth-kzg"

	"github.com/eth2030/dagrid/das/field"
	"github.com/eth2030/dagrid/das/grid"
	"github.com/eth2030/dagrid/log"
	"github.com/eth2030/dagrid/metrics"
)

const (
	// BlobSize is the size of one blob in bytes.
	BlobSize = len(goethkzg.Blob{})

	// CellsPerBlob is the number of grid cells a blob carries.
	CellsPerBlob = BlobSize / field.BytesPerElement
)

var (
	ErrBlobCount = errors.New("blobs: blob count does not match grid")
	ErrSidecar   = errors.New("blobs: malformed sidecar")
	ErrProof     = errors.New("blobs: blob proof rejected")
)

// Count returns the number of blobs needed for a grid of shape dims.
func Count(dims grid.Dimensions) int {
	return (dims.Size() + CellsPerBlob - 1) / CellsPerBlob
}

// Pack copies the cells of g into blobs.
func Pack(g *grid.Grid) []goethkzg.Blob {
	out := make([]goethkzg.Blob, Count(g.Dims))
	for i := range g.Evals {
		b, off := i/CellsPerBlob, (i%CellsPerBlob)*field.BytesPerElement
		copy(out[b][off:], field.ElementBytes(&g.Evals[i]))
	}
	return out
}

// Unpack rebuilds a grid of shape dims from blobs produced by Pack.
func Unpack(dims grid.Dimensions, blobs []goethkzg.Blob) (*grid.Grid, error) {
	if len(blobs) != Count(dims) {
		return nil, fmt.Errorf("%w: %d blobs for %s grid", ErrBlobCount, len(blobs), dims)
	}
	g := grid.NewGrid(dims)
	for i := range g.Evals {
		b, off := i/CellsPerBlob, (i%CellsPerBlob)*field.BytesPerElement
		e, err := field.ElementFromBytes(blobs[b][off : off+field.BytesPerElement])
		if err != nil {
			return nil, fmt.Errorf("blob %d cell %d: %w", b, i%CellsPerBlob, err)
		}
		g.Evals[i] = e
	}
	return g, nil
}

// Sidecar holds blobs with their commitments and proofs.
type Sidecar struct {
	Blobs       []goethkzg.Blob
	Commitments []goethkzg.KZGCommitment
	Proofs      []goethkzg.KZGProof
}

// Exporter commits to blobs with the Ethereum ceremony setup.
type Exporter struct {
	ctx *goethkzg.Context
	log *log.Logger
}

// NewExporter loads the embedded ceremony setup. This takes a few seconds.
func NewExporter() (*Exporter, error) {
	ctx, err := goethkzg.NewContext4096Secure()
	if err != nil {
		return nil, fmt.Errorf("blobs: init kzg context: %w", err)
	}
	return &Exporter{ctx: ctx, log: log.Default().Module("blobs")}, nil
}

// Export packs g and commits to and proves every blob.
func (e *Exporter) Export(g *grid.Grid) (*Sidecar, error) {
	blobs := Pack(g)
	sc := &Sidecar{
		Blobs:       blobs,
		Commitments: make([]goethkzg.KZGCommitment, len(blobs)),
		Proofs:      make([]goethkzg.KZGProof, len(blobs)),
	}
	for i := range blobs {
		c, err := e.ctx.BlobToKZGCommitment(&blobs[i], 0)
		if err != nil {
			return nil, fmt.Errorf("blobs: commit blob %d: %w", i, err)
		}
		p, err := e.ctx.ComputeBlobKZGProof(&blobs[i], c, 0)
		if err != nil {
			return nil, fmt.Errorf("blobs: prove blob %d: %w", i, err)
		}
		sc.Commitments[i], sc.Proofs[i] = c, p
	}
	metrics.BlobsExported.Add(int64(len(blobs)))
	e.log.Info("Exported blobs", "dims", g.Dims, "blobs", len(blobs))
	return sc, nil
}

// Verify checks every blob proof of sc.
func (e *Exporter) Verify(sc *Sidecar) error {
	if len(sc.Commitments) != len(sc.Blobs) || len(sc.Proofs) != len(sc.Blobs) {
		return fmt.Errorf("%w: %d blobs, %d commitments, %d proofs",
			ErrSidecar, len(sc.Blobs), len(sc.Commitments), len(sc.Proofs))
	}
	for i := range sc.Blobs {
		if err := e.ctx.VerifyBlobKZGProof(&sc.Blobs[i], sc.Commitments[i], sc.Proofs[i]); err != nil {
			return fmt.Errorf("%w: blob %d: %w", ErrProof, i, err)
		}
	}
	return nil
}
