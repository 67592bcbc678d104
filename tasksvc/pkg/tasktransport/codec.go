package tasktransport

import (
	"github.com/bytedance/sonic"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype under which task messages travel.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
