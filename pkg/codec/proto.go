package codec

import (
	"io"
	"net/http"

	"google.golang.org/protobuf/proto"
)

// ProtoRequestFactory creates new instances of protobuf request messages,
// avoiding reflection when decoding. T must be a pointer type implementing
// proto.Message.
type ProtoRequestFactory[T proto.Message] func() T

// ProtoCodec implements the Codec interface for Protocol Buffers. Both T
// and U must be pointer types that implement proto.Message.
type ProtoCodec[T proto.Message, U proto.Message] struct {
	newRequest ProtoRequestFactory[T]
}

// NewProtoCodec creates a new ProtoCodec instance with the provided request
// factory.
func NewProtoCodec[T proto.Message, U proto.Message](factory ProtoRequestFactory[T]) *ProtoCodec[T, U] {
	return &ProtoCodec[T, U]{newRequest: factory}
}

// NewRequest creates a new instance of the request message via the factory.
func (c *ProtoCodec[T, U]) NewRequest() T {
	return c.newRequest()
}

// Decode reads and unmarshals protobuf data from the request body into T.
func (c *ProtoCodec[T, U]) Decode(r *http.Request) (T, error) {
	msg := c.NewRequest()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var zero T
		return zero, err
	}
	defer r.Body.Close()

	if err := proto.Unmarshal(body, msg); err != nil {
		var zero T
		return zero, err
	}
	return msg, nil
}

// DecodeBytes unmarshals protobuf data from a byte slice into T.
func (c *ProtoCodec[T, U]) DecodeBytes(data []byte) (T, error) {
	msg := c.NewRequest()
	if err := proto.Unmarshal(data, msg); err != nil {
		var zero T
		return zero, err
	}
	return msg, nil
}

// Encode marshals the response message and writes it to the response with
// an application/x-protobuf content type.
func (c *ProtoCodec[T, U]) Encode(w http.ResponseWriter, resp U) error {
	w.Header().Set("Content-Type", "application/x-protobuf")
	data, err := proto.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
