// Package connect provides the Connect RPC player service and its client.
// Messages are plain Go structs carried by a JSON codec.
package connect

import (
	"encoding/json"
)

// jsonCodec replaces connect's protobuf JSON codec for the "json" content
// subtype so that messages need no generated code.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
