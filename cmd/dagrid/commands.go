package main

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/eth2030/dagrid/crypto/blobs"
	"github.com/eth2030/dagrid/crypto/kzg"
	"github.com/eth2030/dagrid/das"
	"github.com/eth2030/dagrid/das/grid"
	"github.com/eth2030/dagrid/das/sampling"
	"github.com/eth2030/dagrid/metrics"
)

var errAppMismatch = errors.New("recovered app data differs from input")

// extrinsicJSON is the input format: [{"app_id": 1, "data": "0x..."}].
type extrinsicJSON struct {
	AppID uint32        `json:"app_id"`
	Data  hexutil.Bytes `json:"data"`
}

func buildCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Encode extrinsics and print the block header",
		Flags: []cli.Flag{inputFlag},
		Action: func(c *cli.Context) error {
			b, err := e.encode(c.String(inputFlag.Name))
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, b.blk.Header())
		},
	}
}

func sampleCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Print sampled cells with their proofs",
		Flags: []cli.Flag{
			inputFlag,
			seedFlag,
			&cli.StringFlag{Name: "policy", Usage: "per-column, per-row or total (default from config)"},
			&cli.IntFlag{Name: "count", Usage: "cells per line or in total (default from config)"},
			&cli.BoolFlag{Name: "rlp", Usage: "print the cells as hex RLP without proofs"},
		},
		Action: func(c *cli.Context) error {
			sc := e.cfg.Sampling
			if c.IsSet("policy") {
				sc.Policy = c.String("policy")
			}
			if c.IsSet("count") {
				sc.Count = c.Int("count")
			}
			policy, err := sc.SamplingPolicy()
			if err != nil {
				return err
			}
			b, err := e.encode(c.String(inputFlag.Name))
			if err != nil {
				return err
			}
			blk := b.blk
			rng := sampling.NewRand(sampling.SeedFromHash(common.HexToHash(c.String(seedFlag.Name)), []byte("sample")))

			if c.Bool("rlp") {
				cells, err := blk.Sample(policy, rng)
				if err != nil {
					return err
				}
				enc, err := grid.EncodeCells(cells)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.App.Writer, hexutil.Encode(enc))
				return err
			}
			cps, err := blk.SampleWithProofs(policy, rng)
			if err != nil {
				return err
			}
			e.log.Info("Sampled cells", "policy", policy, "cells", len(cps))
			return writeJSON(c.App.Writer, cps)
		},
	}
}

func simulateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Encode a block, sample every row, verify the cells and reconstruct",
		Flags: []cli.Flag{
			inputFlag,
			seedFlag,
			&cli.IntFlag{Name: "count", Usage: "cells sampled per extended row (default: the minimum needed)"},
			&cli.BoolFlag{Name: "metrics", Usage: "print metrics in Prometheus text format"},
			&cli.BoolFlag{Name: "blobs", Usage: "also export the original grid as EIP-4844 blobs"},
		},
		Action: func(c *cli.Context) error {
			b, err := e.encode(c.String(inputFlag.Name))
			if err != nil {
				return err
			}
			if err := simulate(c, b); err != nil {
				return err
			}
			if c.Bool("blobs") {
				if err := exportBlobs(c.App.Writer, b.blk.Original); err != nil {
					return err
				}
			}
			if c.Bool("metrics") {
				return metrics.WriteText(c.App.Writer, metrics.DefaultRegistry, "dagrid")
			}
			return nil
		},
	}
}

func simulate(c *cli.Context, b *encoded) error {
	out, blk := c.App.Writer, b.blk
	dims := blk.Original.Dims
	count := dims.Cols
	if c.IsSet("count") {
		count = c.Int("count")
	}
	v, err := das.NewVerifier(b.setup, blk.Header())
	if err != nil {
		return err
	}
	rng := sampling.NewRand(sampling.SeedFromHash(common.HexToHash(c.String(seedFlag.Name)), []byte("simulate")))
	cps, err := blk.SampleWithProofs(sampling.PerRow(count), rng)
	if err != nil {
		return err
	}
	if err := v.VerifyCells(cps); err != nil {
		return err
	}
	fmt.Fprintf(out, "grid %s extended %s, %d apps\n", dims, blk.Extended.Dims, blk.Lookup.Len())
	fmt.Fprintf(out, "verified %d sampled cells (%d per row)\n", len(cps), min(count, 2*dims.Cols))

	cells := make([]grid.DataCell, len(cps))
	for i := range cps {
		cells[i] = cps[i].Cell
	}
	ext, err := v.Reconstruct(cells)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reconstructed %d rows\n", dims.Rows)

	orig, err := grid.Original(ext)
	if err != nil {
		return err
	}
	for _, app := range appPayloads(b.xts) {
		got, err := blk.Lookup.AppData(orig, b.enc.Builder().Codec(), app.id)
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(got, app.data) || slices.ContainsFunc(got[len(app.data):], func(x byte) bool { return x != 0 }) {
			return fmt.Errorf("%w: app %d", errAppMismatch, app.id)
		}
	}
	fmt.Fprintf(out, "recovered data of %d apps\n", blk.Lookup.Len())
	return nil
}

func exportBlobs(out io.Writer, g *grid.Grid) error {
	exp, err := blobs.NewExporter()
	if err != nil {
		return err
	}
	sc, err := exp.Export(g)
	if err != nil {
		return err
	}
	if err := exp.Verify(sc); err != nil {
		return err
	}
	for i, c := range sc.Commitments {
		fmt.Fprintf(out, "blob %d commitment %s\n", i, hexutil.Encode(c[:]))
	}
	return nil
}

// encoded is one block run through the pipeline.
type encoded struct {
	blk   *das.EncodedBlock
	enc   *das.Encoder
	setup *kzg.Setup
	xts   []grid.AppExtrinsic
}

// encode reads extrinsics and runs the encoding pipeline with a setup
// sized for the configured maximum width.
func (e *env) encode(input string) (*encoded, error) {
	xts, err := readExtrinsics(input, e.stdin)
	if err != nil {
		return nil, err
	}
	setup, err := das.NewSetup(e.cfg.KZG, e.cfg.Grid.MaxCols)
	if err != nil {
		return nil, err
	}
	enc, err := das.NewEncoder(e.cfg, setup)
	if err != nil {
		return nil, err
	}
	blk, err := enc.Encode(xts)
	if err != nil {
		return nil, err
	}
	return &encoded{blk: blk, enc: enc, setup: setup, xts: xts}, nil
}

func readExtrinsics(path string, stdin io.Reader) ([]grid.AppExtrinsic, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var dec []extrinsicJSON
	if err := json.Unmarshal(raw, &dec); err != nil {
		return nil, fmt.Errorf("decode extrinsics: %w", err)
	}
	xts := make([]grid.AppExtrinsic, len(dec))
	for i, x := range dec {
		xts[i] = grid.AppExtrinsic{AppID: x.AppID, Data: x.Data}
	}
	return xts, nil
}

type appPayload struct {
	id   uint32
	data []byte
}

// appPayloads concatenates the data of each app in submission order,
// ordered by app id.
func appPayloads(xts []grid.AppExtrinsic) []appPayload {
	var out []appPayload
	for _, xt := range xts {
		i := slices.IndexFunc(out, func(a appPayload) bool { return a.id == xt.AppID })
		if i < 0 {
			out = append(out, appPayload{id: xt.AppID})
			i = len(out) - 1
		}
		out[i].data = append(out[i].data, xt.Data...)
	}
	slices.SortFunc(out, func(a, b appPayload) int { return cmp.Compare(a.id, b.id) })
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
