package grid

import (
	"fmt"
	"sort"

	"github.com/eth2030/dagrid/das/field"
)

// IndexEntry records where an application's data starts in the flattened
// grid, in payload bytes.
type IndexEntry struct {
	AppID uint32 `json:"app_id"`
	Start int    `json:"start"`
}

// DataLookup maps application ids to byte ranges of the flattened,
// unextended grid. Each cell carries ChunkSize payload bytes, so every Start
// is a multiple of the chunk size. Entries are ordered by Start and app id,
// each app id appears once, and entry i spans [Start_i, Start_{i+1}). The
// last entry runs to Size, so the entries cover [0, Size) without gaps.
type DataLookup struct {
	Size  int          `json:"size"`
	Index []IndexEntry `json:"index"`
}

// Len returns the number of applications in the lookup.
func (l *DataLookup) Len() int { return len(l.Index) }

// Range returns the byte range [start, end) occupied by appID. The range
// includes the zero fill of the app's last chunk and, for the last app, the
// grid padding.
func (l *DataLookup) Range(appID uint32) (int, int, error) {
	i := sort.Search(len(l.Index), func(i int) bool { return l.Index[i].AppID >= appID })
	if i == len(l.Index) || l.Index[i].AppID != appID {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownApp, appID)
	}
	end := l.Size
	if i+1 < len(l.Index) {
		end = l.Index[i+1].Start
	}
	return l.Index[i].Start, end, nil
}

// CellRange returns the flat cell range [start, end) occupied by appID.
func (l *DataLookup) CellRange(appID uint32, chunkSize int) (int, int, error) {
	start, end, err := l.Range(appID)
	if err != nil {
		return 0, 0, err
	}
	return start / chunkSize, end / chunkSize, nil
}

// Validate checks the lookup invariants.
func (l *DataLookup) Validate() error {
	for i, e := range l.Index {
		if i == 0 && e.Start != 0 {
			return fmt.Errorf("grid: first entry starts at %d", e.Start)
		}
		if i > 0 {
			prev := l.Index[i-1]
			if e.Start <= prev.Start {
				return fmt.Errorf("grid: entry %d offset %d not after %d", i, e.Start, prev.Start)
			}
			if e.AppID <= prev.AppID {
				return fmt.Errorf("grid: entry %d app id %d not after %d", i, e.AppID, prev.AppID)
			}
		}
	}
	if n := len(l.Index); n > 0 && l.Index[n-1].Start >= l.Size {
		return fmt.Errorf("grid: last entry starts at %d, size %d", l.Index[n-1].Start, l.Size)
	}
	return nil
}

// AppData returns the payload bytes stored for appID in the unextended grid
// g. Trailing zero fill is returned as is; the codec cannot tell it apart
// from data.
func (l *DataLookup) AppData(g *Grid, codec *field.Codec, appID uint32) ([]byte, error) {
	first, last, err := l.CellRange(appID, codec.ChunkSize())
	if err != nil {
		return nil, err
	}
	if g.Dims.Size()*codec.ChunkSize() != l.Size {
		return nil, fmt.Errorf("%w: lookup size %d does not match %s grid", ErrInvalidPosition, l.Size, g.Dims)
	}
	out := make([]byte, 0, (last-first)*codec.ChunkSize())
	for i := first; i < last; i++ {
		chunk, err := codec.Decode(g.Evals[i])
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
