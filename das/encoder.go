// Package das runs the block data-availability pipeline: it packs
// application extrinsics into a grid, extends every row, commits to the
// extended rows, and serves and checks sampled cells.
package das

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eth2030/dagrid/config"
	"github.com/eth2030/dagrid/crypto/kzg"
	"github.com/eth2030/dagrid/das/grid"
	"github.com/eth2030/dagrid/das/sampling"
	"github.com/eth2030/dagrid/log"
	"github.com/eth2030/dagrid/metrics"
)

var (
	ErrInvalidHeader = errors.New("das: invalid block header")
	ErrCellProof     = errors.New("das: cell proof rejected")
	ErrRowCommitment = errors.New("das: recovered row does not match commitment")
)

// NewSetup returns the commitment setup named by cfg, large enough for
// rows of maxCols unextended columns.
func NewSetup(cfg config.KZGConfig, maxCols int) (*kzg.Setup, error) {
	var (
		s   *kzg.Setup
		err error
	)
	if cfg.SetupFile != "" {
		s, err = kzg.LoadSetup(cfg.SetupFile)
	} else {
		s, err = kzg.NewInsecureSetup(maxCols, new(big.Int).SetUint64(cfg.InsecureSecret))
	}
	if err != nil {
		return nil, err
	}
	if s.MaxWidth() < maxCols {
		return nil, fmt.Errorf("%w: max width %d, max_cols %d", kzg.ErrSetupTooSmall, s.MaxWidth(), maxCols)
	}
	return s, nil
}

// Encoder turns extrinsics into an encoded block. It is safe for
// concurrent use.
type Encoder struct {
	builder *grid.Builder
	setup   *kzg.Setup
	log     *log.Logger
}

// NewEncoder returns an encoder for the grid section of cfg.
func NewEncoder(cfg *config.Config, setup *kzg.Setup) (*Encoder, error) {
	b, err := grid.NewBuilder(cfg.Grid.Builder())
	if err != nil {
		return nil, err
	}
	return &Encoder{
		builder: b,
		setup:   setup,
		log:     log.Default().Module("das"),
	}, nil
}

// SetLogger replaces the encoder's logger.
func (e *Encoder) SetLogger(l *log.Logger) { e.log = l }

// Builder returns the grid builder.
func (e *Encoder) Builder() *grid.Builder { return e.builder }

// EncodedBlock is the output of the pipeline for one block.
type EncodedBlock struct {
	Original    *grid.Grid
	Extended    *grid.Grid
	Lookup      *grid.DataLookup
	Commitments []kzg.Commitment

	scheme *kzg.KZG
}

// Encode builds, extends and commits. Any failure aborts the block.
func (e *Encoder) Encode(xts []grid.AppExtrinsic) (*EncodedBlock, error) {
	blk, err := e.encode(xts)
	if err != nil {
		metrics.EncodeFailures.Inc()
		e.log.Warn("Block encoding failed", "extrinsics", len(xts), "err", err)
		return nil, err
	}
	var payload int64
	for _, xt := range xts {
		payload += int64(len(xt.Data))
	}
	metrics.BlocksEncoded.Inc()
	metrics.ExtrinsicBytes.Add(payload)
	metrics.CellsEncoded.Add(int64(blk.Extended.Dims.Size()))
	metrics.GridRows.Set(int64(blk.Original.Dims.Rows))
	metrics.GridCols.Set(int64(blk.Original.Dims.Cols))
	e.log.Info("Encoded block", "extrinsics", len(xts), "apps", blk.Lookup.Len(),
		"bytes", payload, "dims", blk.Original.Dims, "extended", blk.Extended.Dims)
	return blk, nil
}

func (e *Encoder) encode(xts []grid.AppExtrinsic) (*EncodedBlock, error) {
	t := metrics.NewTimer(metrics.BuildTime)
	g, lookup, err := e.builder.Build(xts)
	if err != nil {
		return nil, err
	}
	e.log.Debug("Built grid", "dims", g.Dims, "elapsed", t.Stop())

	t = metrics.NewTimer(metrics.ExtendTime)
	ext, err := grid.Extend(g)
	if err != nil {
		return nil, err
	}
	e.log.Debug("Extended grid", "dims", ext.Dims, "elapsed", t.Stop())

	scheme, err := e.setup.Scheme(g.Dims.Cols)
	if err != nil {
		return nil, err
	}
	t = metrics.NewTimer(metrics.CommitTime)
	commitments, err := kzg.NewGenerator(scheme).Commit(ext)
	if err != nil {
		return nil, err
	}
	e.log.Debug("Committed rows", "rows", len(commitments), "elapsed", t.Stop())

	return &EncodedBlock{
		Original:    g,
		Extended:    ext,
		Lookup:      lookup,
		Commitments: commitments,
		scheme:      scheme,
	}, nil
}

// Header is the part of a block a light client receives: the grid shape,
// the app index and the row commitments.
type Header struct {
	Rows        int              `json:"rows"`
	Cols        int              `json:"cols"`
	Lookup      *grid.DataLookup `json:"lookup"`
	Commitments []kzg.Commitment `json:"commitments"`
}

// Dims returns the unextended grid shape.
func (h *Header) Dims() grid.Dimensions { return grid.Dimensions{Rows: h.Rows, Cols: h.Cols} }

// Header returns the block header.
func (b *EncodedBlock) Header() *Header {
	return &Header{
		Rows:        b.Original.Dims.Rows,
		Cols:        b.Original.Dims.Cols,
		Lookup:      b.Lookup,
		Commitments: b.Commitments,
	}
}

// CellProof is a sampled cell with the opening of its row commitment.
type CellProof struct {
	Cell  grid.DataCell `json:"cell"`
	Proof hexutil.Bytes `json:"proof"`
}

// Open returns the cell at p of the extended grid with its proof.
func (b *EncodedBlock) Open(p grid.Position) (CellProof, error) {
	v, err := b.Extended.At(p)
	if err != nil {
		return CellProof{}, err
	}
	proof, err := kzg.NewGenerator(b.scheme).Open(b.Extended, p)
	if err != nil {
		return CellProof{}, err
	}
	return CellProof{Cell: grid.NewDataCell(p, &v), Proof: proof.Bytes()}, nil
}

// Sample draws positions of the extended grid and returns their cells.
func (b *EncodedBlock) Sample(p sampling.Policy, rng *rand.Rand) ([]grid.DataCell, error) {
	positions, err := sampling.Sample(b.Extended.Dims, p, rng)
	if err != nil {
		return nil, err
	}
	cells, err := sampling.Cells(b.Extended, positions)
	if err != nil {
		return nil, err
	}
	metrics.CellsSampled.Add(int64(len(cells)))
	return cells, nil
}

// SampleWithProofs is Sample with an opening for every cell.
func (b *EncodedBlock) SampleWithProofs(p sampling.Policy, rng *rand.Rand) ([]CellProof, error) {
	positions, err := sampling.Sample(b.Extended.Dims, p, rng)
	if err != nil {
		return nil, err
	}
	out := make([]CellProof, len(positions))
	for i, pos := range positions {
		if out[i], err = b.Open(pos); err != nil {
			return nil, err
		}
	}
	metrics.CellsSampled.Add(int64(len(out)))
	return out, nil
}
