// Package codec provides encoding and decoding functionality for different
// request and response formats: JSON, HTML form data, and Protocol Buffers.
package codec

import "net/http"

// Codec defines an interface for decoding request data and encoding
// response data. The type T represents the request data type and U the
// response data type.
type Codec[T any, U any] interface {
	// NewRequest creates a new zero-value instance of the request type T,
	// used to get an instance for decoding without reflection.
	NewRequest() T

	// Decode extracts and deserializes data from an HTTP request into a
	// value of type T.
	Decode(r *http.Request) (T, error)

	// DecodeBytes deserializes data from a byte slice into a value of type
	// T, for sources where the raw payload was already extracted.
	DecodeBytes(data []byte) (T, error)

	// Encode serializes a value of type U and writes it to the HTTP
	// response, setting appropriate headers.
	Encode(w http.ResponseWriter, resp U) error
}
