package vsm

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var ErrInvalidDocument = errors.New("invalid diagram document")

// Encode serialises the document as indented JSON. There is no version
// header; the shape is the in-memory structure.
func Encode(d Diagram) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode diagram: %w", err)
	}
	return data, nil
}

// Decode parses a document. Empty input yields an empty shell.
func Decode(data []byte) (Diagram, error) {
	if len(data) == 0 || string(data) == "null" || string(data) == "{}" {
		return NewEmpty(), nil
	}
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return Diagram{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if d.Elements == nil {
		d.Elements = []Element{}
	}
	if d.Connections == nil {
		d.Connections = []Connection{}
	}
	return d, nil
}

// Dangling lists the ids of connections with an endpoint that is not an
// element of d.
func (d Diagram) Dangling() []string {
	var ids []string
	for _, c := range d.Connections {
		_, fromOK := d.Element(c.From.ElementID)
		_, toOK := d.Element(c.To.ElementID)
		if !fromOK || !toOK {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
