package data

import (
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR maps decode with string keys so results match the other dict sources.
var loadCBOR = sync.OnceValues(func() (cborCodec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return cborCodec{}, err
	}
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		return cborCodec{}, err
	}
	return cborCodec{enc: em, dec: dm}, nil
})

func cborToDict(data any, _ converter.Options) (any, error) {
	codec, err := loadCBOR()
	if err != nil {
		return nil, errors.NewConfiguration("cbor codec unavailable", err)
	}
	var out any
	if err := codec.dec.Unmarshal(data.([]byte), &out); err != nil {
		return nil, errors.NewConversion("invalid CBOR: "+err.Error(), "cbor", "dict", err)
	}
	return out, nil
}

func dictToCBOR(data any, _ converter.Options) (any, error) {
	codec, err := loadCBOR()
	if err != nil {
		return nil, errors.NewConfiguration("cbor codec unavailable", err)
	}
	b, err := codec.enc.Marshal(data)
	if err != nil {
		return nil, errors.NewConversion("failed to encode CBOR: "+err.Error(), "dict", "cbor", err)
	}
	return b, nil
}

// protobufToDict decodes google.protobuf.Struct wire bytes. Numbers come back
// as float64.
func protobufToDict(data any, _ converter.Options) (any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data.([]byte), &s); err != nil {
		return nil, errors.NewConversion("invalid protobuf Struct: "+err.Error(), "protobuf", "dict", err)
	}
	return s.AsMap(), nil
}

func dictToProtobuf(data any, _ converter.Options) (any, error) {
	s, err := structpb.NewStruct(data.(map[string]any))
	if err != nil {
		return nil, errors.NewConversion("value not representable as protobuf Struct: "+err.Error(), "dict", "protobuf", err)
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(s)
	if err != nil {
		return nil, errors.NewConversion("failed to encode protobuf: "+err.Error(), "dict", "protobuf", err)
	}
	return b, nil
}
