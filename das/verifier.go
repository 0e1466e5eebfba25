package das

import (
	"errors"
	"fmt"

	"github.com/eth2030/dagrid/crypto/kzg"
	"github.com/eth2030/dagrid/das/field"
	"github.com/eth2030/dagrid/das/grid"
	"github.com/eth2030/dagrid/das/recovery"
	"github.com/eth2030/dagrid/log"
	"github.com/eth2030/dagrid/metrics"
)

// Verifier checks cells of one block against its header.
type Verifier struct {
	header *Header
	gen    *kzg.Generator
	log    *log.Logger
}

// NewVerifier validates the header and binds a scheme of its width. Every
// commitment must be a valid G1 point and there must be one per row.
func NewVerifier(setup *kzg.Setup, h *Header) (*Verifier, error) {
	dims := h.Dims()
	if !field.IsPowerOfTwo(dims.Rows) || !field.IsPowerOfTwo(dims.Cols) {
		return nil, fmt.Errorf("%w: dims %s", ErrInvalidHeader, dims)
	}
	if len(h.Commitments) != dims.Rows {
		return nil, fmt.Errorf("%w: %w: %d for %d rows", ErrInvalidHeader,
			kzg.ErrCommitmentsMismatch, len(h.Commitments), dims.Rows)
	}
	for r, c := range h.Commitments {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidHeader, r, err)
		}
	}
	if h.Lookup != nil {
		if err := h.Lookup.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
		}
	}
	scheme, err := setup.Scheme(dims.Cols)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		header: h,
		gen:    kzg.NewGenerator(scheme),
		log:    log.Default().Module("das").With("dims", dims),
	}, nil
}

// VerifyCell checks one cell against the commitment of its row.
func (v *Verifier) VerifyCell(cp CellProof) error {
	err := v.verifyCell(cp)
	if err != nil {
		metrics.CellsRejected.Inc()
		v.log.Debug("Rejected cell", "pos", cp.Cell.Position, "err", err)
		return err
	}
	metrics.CellsVerified.Inc()
	return nil
}

func (v *Verifier) verifyCell(cp CellProof) error {
	if !v.header.Dims().Extended().Contains(cp.Cell.Position) {
		return fmt.Errorf("%w: %w: %s", ErrCellProof, grid.ErrInvalidPosition, cp.Cell.Position)
	}
	proof, err := kzg.ProofFromBytes(cp.Proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCellProof, err)
	}
	if err := proof.ValidateWitness(); err != nil {
		return fmt.Errorf("%w: %w", ErrCellProof, err)
	}
	ok, err := v.gen.VerifyCell(v.header.Commitments, cp.Cell, proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCellProof, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCellProof, cp.Cell.Position)
	}
	return nil
}

// VerifyCells checks every cell and returns the joined failures.
func (v *Verifier) VerifyCells(cps []CellProof) error {
	var errs []error
	for _, cp := range cps {
		if err := v.VerifyCell(cp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconstruct recovers the extended grid from cells and checks every
// recovered row against its commitment. Recovery failures are counted per
// row in the recovery metrics and returned unchanged.
func (v *Verifier) Reconstruct(cells []grid.DataCell) (*grid.Grid, error) {
	t := metrics.NewTimer(metrics.ReconstructTime)
	ext, err := recovery.Reconstruct(v.header.Dims(), cells)
	elapsed := t.Stop()
	if err != nil {
		countRecoveryFailures(err)
		v.log.Warn("Reconstruction failed", "cells", len(cells), "err", err)
		return nil, err
	}

	scheme := v.gen.Scheme()
	for r := 0; r < ext.Dims.Rows; r++ {
		c, err := scheme.Commit(ext.Row(r))
		if err != nil {
			return nil, err
		}
		if c != v.header.Commitments[r] {
			metrics.RowsInconsistent.Inc()
			return nil, fmt.Errorf("%w: row %d", ErrRowCommitment, r)
		}
	}
	metrics.RowsRecovered.Add(int64(ext.Dims.Rows))
	v.log.Info("Reconstructed grid", "cells", len(cells), "elapsed", elapsed)
	return ext, nil
}

// AppData reconstructs the grid and returns the payload of one app.
func (v *Verifier) AppData(cells []grid.DataCell, codec *field.Codec, appID uint32) ([]byte, error) {
	if v.header.Lookup == nil {
		return nil, fmt.Errorf("%w: no lookup", ErrInvalidHeader)
	}
	ext, err := v.Reconstruct(cells)
	if err != nil {
		return nil, err
	}
	orig, err := grid.Original(ext)
	if err != nil {
		return nil, err
	}
	return v.header.Lookup.AppData(orig, codec, appID)
}

func countRecoveryFailures(err error) {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		switch {
		case errors.Is(e, recovery.ErrInsufficientData):
			metrics.RowsInsufficient.Inc()
		case errors.Is(e, recovery.ErrInconsistentData):
			metrics.RowsInconsistent.Inc()
		}
	}
}
