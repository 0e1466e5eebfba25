package grid

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/dagrid/das/field"
)

// DataCell is a serialized grid element at a position, the unit exchanged
// with the network layer. Data is always field.BytesPerElement bytes.
type DataCell struct {
	Position Position
	Data     []byte
}

// NewDataCell serializes e at p.
func NewDataCell(p Position, e *fr.Element) DataCell {
	return DataCell{Position: p, Data: field.ElementBytes(e)}
}

// Element parses the cell data.
func (c *DataCell) Element() (fr.Element, error) {
	e, err := field.ElementFromBytes(c.Data)
	if err != nil {
		return e, fmt.Errorf("cell %s: %w", c.Position, err)
	}
	return e, nil
}

type dataCellJSON struct {
	Position Position      `json:"position"`
	Data     hexutil.Bytes `json:"data"`
}

// MarshalJSON encodes the cell with hex data.
func (c DataCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(dataCellJSON{Position: c.Position, Data: c.Data})
}

// UnmarshalJSON decodes a cell with hex data.
func (c *DataCell) UnmarshalJSON(b []byte) error {
	var dec dataCellJSON
	if err := json.Unmarshal(b, &dec); err != nil {
		return err
	}
	c.Position, c.Data = dec.Position, dec.Data
	return nil
}

// rlpDataCell is the wire layout: [[row, col], data].
type rlpDataCell struct {
	Position Position
	Data     []byte
}

// EncodeRLP implements rlp.Encoder.
func (c *DataCell) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &rlpDataCell{Position: c.Position, Data: c.Data})
}

// DecodeRLP implements rlp.Decoder. Cells with data of the wrong width are
// rejected.
func (c *DataCell) DecodeRLP(s *rlp.Stream) error {
	var dec rlpDataCell
	if err := s.Decode(&dec); err != nil {
		return err
	}
	if len(dec.Data) != field.BytesPerElement {
		return fmt.Errorf("%w: cell data length %d", field.ErrDecoding, len(dec.Data))
	}
	c.Position, c.Data = dec.Position, dec.Data
	return nil
}

// EncodeCells serializes cells as an RLP list.
func EncodeCells(cells []DataCell) ([]byte, error) {
	return rlp.EncodeToBytes(cells)
}

// DecodeCells parses an RLP list of cells.
func DecodeCells(b []byte) ([]DataCell, error) {
	var cells []DataCell
	if err := rlp.DecodeBytes(b, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
