package natsclient

import (
	"bytes"
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// Codec serializes/deserializes message payloads to/from raw bytes. The
// framework hands raw bytes to the invoker on receive and serializes the
// request to raw bytes before publish; the connection registry lets each
// named connection select its own Codec (§6: "Pluggable serializer
// registry selectable per connection (e.g., Protobuf)").
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default encoding: camelCase field names, case
// insensitive on read. encoding/json already matches struct tags
// case-insensitively on unmarshal; camelCase naming is a convention
// enforced by the struct tags handler authors write, not by the codec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

// ProtoCodec serializes proto.Message values as binary protobuf, and falls
// back to JSON for values that aren't proto.Message so the same connection
// can still round-trip plain Go structs when a handler doesn't use
// generated types.
type ProtoCodec struct{}

func (ProtoCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return json.Marshal(v)
}

func (ProtoCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}
