package blobs

import (
	"errors"
	"testing"

	"github.com/eth2030/dagrid/das/field"
	"github.com/eth2030/dagrid/das/grid"
)

func testGrid(dims grid.Dimensions) *grid.Grid {
	g := grid.NewGrid(dims)
	for i := range g.Evals {
		g.Evals[i].SetUint64(uint64(i*7 + 1))
	}
	return g
}

func TestCount(t *testing.T) {
	tests := []struct {
		dims grid.Dimensions
		want int
	}{
		{grid.Dimensions{Rows: 4, Cols: 4}, 1},
		{grid.Dimensions{Rows: 64, Cols: 64}, 1},
		{grid.Dimensions{Rows: 64, Cols: 128}, 2},
		{grid.Dimensions{Rows: 256, Cols: 256}, 16},
	}
	for _, tt := range tests {
		if got := Count(tt.dims); got != tt.want {
			t.Errorf("Count(%s) = %d, want %d", tt.dims, got, tt.want)
		}
	}
	if CellsPerBlob != 4096 {
		t.Fatalf("CellsPerBlob = %d, want 4096", CellsPerBlob)
	}
}

func TestPackUnpack(t *testing.T) {
	dims := grid.Dimensions{Rows: 64, Cols: 128}
	g := testGrid(dims)
	blobs := Pack(g)
	if len(blobs) != 2 {
		t.Fatalf("got %d blobs, want 2", len(blobs))
	}
	// Cell 4096 opens the second blob.
	want := field.ElementBytes(&g.Evals[CellsPerBlob])
	if string(blobs[1][:field.BytesPerElement]) != string(want) {
		t.Fatal("second blob does not start with cell 4096")
	}
	got, err := Unpack(dims, blobs)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !got.Equal(g) {
		t.Fatal("round trip mismatch")
	}
	if _, err := Unpack(dims, blobs[:1]); !errors.Is(err, ErrBlobCount) {
		t.Fatalf("err = %v, want ErrBlobCount", err)
	}
}

func TestPackPadsLastBlob(t *testing.T) {
	g := testGrid(grid.Dimensions{Rows: 2, Cols: 2})
	blobs := Pack(g)
	for i, b := range blobs[0][4*field.BytesPerElement:] {
		if b != 0 {
			t.Fatalf("padding byte %d = %d, want 0", i, b)
		}
	}
}

func TestUnpackRejectsNonCanonical(t *testing.T) {
	dims := grid.Dimensions{Rows: 2, Cols: 2}
	blobs := Pack(testGrid(dims))
	for i := 0; i < field.BytesPerElement; i++ {
		blobs[0][field.BytesPerElement+i] = 0xff
	}
	if _, err := Unpack(dims, blobs); !errors.Is(err, field.ErrDecoding) {
		t.Fatalf("err = %v, want ErrDecoding", err)
	}
}

func TestExportVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("loading the ceremony setup is slow")
	}
	e, err := NewExporter()
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	sc, err := e.Export(testGrid(grid.Dimensions{Rows: 4, Cols: 8}))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(sc.Blobs) != 1 {
		t.Fatalf("got %d blobs, want 1", len(sc.Blobs))
	}
	if err := e.Verify(sc); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	sc.Blobs[0][31] ^= 1
	if err := e.Verify(sc); !errors.Is(err, ErrProof) {
		t.Fatalf("tampered blob: err = %v, want ErrProof", err)
	}
	sc.Proofs = nil
	if err := e.Verify(sc); !errors.Is(err, ErrSidecar) {
		t.Fatalf("err = %v, want ErrSidecar", err)
	}
}
