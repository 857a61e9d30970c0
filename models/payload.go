package models

import (
	"encoding/json"
	"fmt"
)

// Payload is the serialized dataset handed from the extractor to the
// transformer. It is JSON: {"columns":[...],"rows":[[string|null,...],...]}.
type Payload []byte

type payloadWire struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// EncodePayload serializes ds. Null cells become JSON null; other cells are
// rendered with Cell.String.
func EncodePayload(ds *Dataset) (Payload, error) {
	wire := payloadWire{
		Columns: ds.Columns,
		Rows:    make([][]*string, len(ds.Rows)),
	}
	if wire.Columns == nil {
		wire.Columns = []string{}
	}
	for i, row := range ds.Rows {
		out := make([]*string, len(row))
		for j, cell := range row {
			if cell.IsNull() {
				continue
			}
			s := cell.String()
			out[j] = &s
		}
		wire.Rows[i] = out
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("payload: encode: %w", err)
	}
	return data, nil
}

// DecodePayload parses p back into a Dataset of text and null cells.
func DecodePayload(p Payload) (*Dataset, error) {
	var wire payloadWire
	if err := json.Unmarshal(p, &wire); err != nil {
		return nil, fmt.Errorf("payload: decode: %w", err)
	}

	ds := NewDataset(wire.Columns)
	for i, row := range wire.Rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = NullCell()
			} else {
				cells[j] = TextCell(*v)
			}
		}
		if err := ds.Append(cells); err != nil {
			return nil, fmt.Errorf("payload: row %d: %w", i, err)
		}
	}
	return ds, nil
}
