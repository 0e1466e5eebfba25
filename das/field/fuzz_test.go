package field

import (
	"bytes"
	"errors"
	"testing"
)

func FuzzCodecRoundTrip(f *testing.F) {
	f.Add(uint8(30), []byte("hello world"))
	f.Add(uint8(0), []byte{0xff})
	f.Add(uint8(3), []byte{0, 0, 0, 0, 0})
	f.Add(uint8(15), bytes.Repeat([]byte{0xff}, 100))
	f.Add(uint8(7), []byte{})

	f.Fuzz(func(t *testing.T, size uint8, data []byte) {
		chunk := int(size)%SafeBytes + 1
		c, err := NewCodec(chunk)
		if err != nil {
			t.Fatalf("NewCodec(%d): %v", chunk, err)
		}

		var out []byte
		for lo := 0; lo < len(data); lo += chunk {
			hi := min(lo+chunk, len(data))
			e, err := c.Encode(data[lo:hi])
			if err != nil {
				t.Fatalf("Encode(%x): %v", data[lo:hi], err)
			}
			// Serialized cells must parse back to the same element.
			back, err := ElementFromBytes(ElementBytes(&e))
			if err != nil || !back.Equal(&e) {
				t.Fatalf("element bytes round trip: %v", err)
			}
			dec, err := c.Decode(e)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(dec) != chunk {
				t.Fatalf("decoded %d bytes, want %d", len(dec), chunk)
			}
			out = append(out, dec...)
		}

		if !bytes.HasPrefix(out, data) {
			t.Fatalf("round trip = %x, want prefix %x", out, data)
		}
		for i, b := range out[len(data):] {
			if b != 0 {
				t.Fatalf("padding byte %d = %d, want 0", i, b)
			}
		}

		if len(data) > chunk {
			if _, err := c.Encode(data); !errors.Is(err, ErrEncoding) {
				t.Fatalf("oversized chunk: err = %v, want ErrEncoding", err)
			}
		}
	})
}
