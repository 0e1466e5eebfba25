package grid

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/eth2030/dagrid/das/field"
)

// BuilderConfig bounds the grids a Builder may produce.
type BuilderConfig struct {
	// ChunkSize is the number of payload bytes packed into one cell.
	ChunkSize int

	// MinCells is the minimum number of cells in a grid. Rounded up to a
	// power of two.
	MinCells int

	// MaxRows and MaxCols bound the unextended grid. Both powers of two.
	MaxRows int
	MaxCols int

	// AllowEmpty makes an empty extrinsic set produce an all-padding grid
	// instead of ErrEmptyInput.
	AllowEmpty bool
}

// DefaultBuilderConfig returns a 256x256 maximum grid with 31-byte chunks.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		ChunkSize: field.SafeBytes,
		MinCells:  4,
		MaxRows:   256,
		MaxCols:   256,
	}
}

// Validate checks the configuration.
func (c BuilderConfig) Validate() error {
	if c.ChunkSize < 1 || c.ChunkSize > field.SafeBytes {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.MinCells < 1 {
		return fmt.Errorf("%w: min cells %d", ErrInvalidConfig, c.MinCells)
	}
	if !field.IsPowerOfTwo(c.MaxRows) || !field.IsPowerOfTwo(c.MaxCols) {
		return fmt.Errorf("%w: max dimensions %dx%d must be powers of two",
			ErrInvalidConfig, c.MaxRows, c.MaxCols)
	}
	if 2*c.MaxCols > field.MaxDomainSize {
		return fmt.Errorf("%w: max cols %d exceeds extension limit", ErrInvalidConfig, c.MaxCols)
	}
	if field.NextPowerOfTwo(c.MinCells) > c.MaxRows*c.MaxCols {
		return fmt.Errorf("%w: min cells %d exceed max grid %dx%d",
			ErrInvalidConfig, c.MinCells, c.MaxRows, c.MaxCols)
	}
	return nil
}

// Capacity returns the maximum number of cells in an unextended grid.
func (c BuilderConfig) Capacity() int { return c.MaxRows * c.MaxCols }

// Builder packs application extrinsics into an unextended grid.
type Builder struct {
	cfg   BuilderConfig
	codec *field.Codec
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := field.NewCodec(cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, codec: codec}, nil
}

// Codec returns the codec used to pack cells.
func (b *Builder) Codec() *field.Codec { return b.codec }

// Config returns the builder configuration.
func (b *Builder) Config() BuilderConfig { return b.cfg }

// Build sorts xts by app id (stable on submission order), packs the data of
// each application into consecutive cells, pads with zero cells to a power
// of two and reshapes into a grid. The input slice is not modified.
func (b *Builder) Build(xts []AppExtrinsic) (*Grid, *DataLookup, error) {
	if len(xts) == 0 && !b.cfg.AllowEmpty {
		return nil, nil, ErrEmptyInput
	}

	sorted := slices.Clone(xts)
	slices.SortStableFunc(sorted, func(a, b AppExtrinsic) int {
		switch {
		case a.AppID < b.AppID:
			return -1
		case a.AppID > b.AppID:
			return 1
		}
		return 0
	})

	chunk := b.cfg.ChunkSize
	var (
		cells  []fr.Element
		lookup = &DataLookup{}
	)
	for i := 0; i < len(sorted); {
		j := i
		var data []byte
		for j < len(sorted) && sorted[j].AppID == sorted[i].AppID {
			data = append(data, sorted[j].Data...)
			j++
		}
		lookup.Index = append(lookup.Index, IndexEntry{AppID: sorted[i].AppID, Start: len(cells) * chunk})

		n := (len(data) + chunk - 1) / chunk
		if n == 0 {
			n = 1
		}
		if len(cells)+n > b.cfg.Capacity() {
			return nil, nil, fmt.Errorf("%w: more than %d cells", ErrGridOverflow, b.cfg.Capacity())
		}
		for k := 0; k < n; k++ {
			lo := min(k*chunk, len(data))
			hi := min(lo+chunk, len(data))
			e, err := b.codec.Encode(data[lo:hi])
			if err != nil {
				return nil, nil, err
			}
			cells = append(cells, e)
		}
		i = j
	}

	dims, err := b.dimensions(len(cells))
	if err != nil {
		return nil, nil, err
	}
	g := NewGrid(dims)
	copy(g.Evals, cells)
	lookup.Size = dims.Size() * chunk
	return g, lookup, nil
}

// dimensions picks the shape for n cells: the padded size N is the next
// power of two >= max(n, MinCells); the grid is as square as possible with
// cols >= rows, cols capped at MaxCols. When the square shape has more than
// MaxRows rows it is widened until the rows fit.
func (b *Builder) dimensions(n int) (Dimensions, error) {
	total := field.NextPowerOfTwo(max(n, b.cfg.MinCells))
	k := bits.TrailingZeros(uint(total))
	cols := min(1<<((k+1)/2), b.cfg.MaxCols)
	if total/cols > b.cfg.MaxRows {
		cols = min(field.NextPowerOfTwo((total+b.cfg.MaxRows-1)/b.cfg.MaxRows), b.cfg.MaxCols)
	}
	rows := total / cols
	if rows > b.cfg.MaxRows {
		return Dimensions{}, fmt.Errorf("%w: %d cells need %dx%d, max %dx%d",
			ErrGridOverflow, n, rows, cols, b.cfg.MaxRows, b.cfg.MaxCols)
	}
	return Dimensions{Rows: rows, Cols: cols}, nil
}
