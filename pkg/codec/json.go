package codec

import (
	"encoding/json"
	"io"
	"net/http"
)

// JSONCodec is a codec that uses JSON for marshaling and unmarshaling.
type JSONCodec[T any, U any] struct{}

// NewJSONCodec creates a new JSONCodec instance for the specified types.
func NewJSONCodec[T any, U any]() *JSONCodec[T, U] {
	return &JSONCodec[T, U]{}
}

// NewRequest creates a new zero-value instance of the request type T.
func (c *JSONCodec[T, U]) NewRequest() T {
	var data T
	return data
}

// Decode reads and unmarshals JSON data from the request body into type T.
func (c *JSONCodec[T, U]) Decode(r *http.Request) (T, error) {
	data := c.NewRequest()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return data, err
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, &data); err != nil {
		var zero T
		return zero, err
	}
	return data, nil
}

// DecodeBytes unmarshals JSON data from a byte slice into type T.
func (c *JSONCodec[T, U]) DecodeBytes(body []byte) (T, error) {
	data := c.NewRequest()
	if err := json.Unmarshal(body, &data); err != nil {
		var zero T
		return zero, err
	}
	return data, nil
}

// Encode marshals the response value to JSON and writes it to the response
// with an application/json content type.
func (c *JSONCodec[T, U]) Encode(w http.ResponseWriter, resp U) error {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
