package grpc

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// codecName selects gobCodec per call via grpc.CallContentSubtype; the
// generated pb package the teacher's gRPC transport depended on does not
// exist in this tree (no .proto, no protoc run here), so this transport
// carries plain Go structs over grpc's wire framing instead of protobuf
// messages, in the same spirit as grpc-go's own non-proto codec examples.
const codecName = "gob"

type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
