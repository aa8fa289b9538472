package simulation

import (
	"encoding/json"
	"io"
)

// A Manifest is the persisted state of a simulation. Its schema belongs to
// the tick body; values must be JSON compatible.
type Manifest map[string]any

// Codec determines how a manifest is encoded.
type Codec interface {
	Encode(w io.Writer, data Manifest) error
	Decode(r io.Reader) (Manifest, error)
}

// JSONCodec encodes manifests as JSON objects.
type JSONCodec struct{}

// Encode writes the manifest as JSON to the provided writer.
func (c JSONCodec) Encode(w io.Writer, data Manifest) error {
	if data == nil {
		data = Manifest{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(data)
}

// Decode reads a JSON object from the reader and returns it as a manifest.
func (c JSONCodec) Decode(r io.Reader) (Manifest, error) {
	decoder := json.NewDecoder(r)

	var data Manifest

	err := decoder.Decode(&data)
	if err != nil {
		return nil, err
	}

	if data == nil {
		data = Manifest{}
	}

	return data, nil
}
