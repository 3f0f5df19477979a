package images

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/formats/encoding"
)

// carrier moves encoded image bytes through a text or binary format.
type carrier struct {
	validate converter.Validator
	unwrap   func(any) ([]byte, error)
	wrap     func([]byte) any
}

var carriers = map[string]carrier{
	"base64": {
		validate: converter.ExpectString,
		unwrap:   func(data any) ([]byte, error) { return encoding.DecodeBase64(data.(string)) },
		wrap:     func(b []byte) any { return base64.StdEncoding.EncodeToString(b) },
	},
	"binary": {
		validate: encoding.ExpectBinary,
		unwrap:   encoding.Bytes,
		wrap:     func(b []byte) any { return b },
	},
	"hex": {
		validate: converter.ExpectString,
		unwrap:   func(data any) ([]byte, error) { return encoding.DecodeHex(data.(string)) },
		wrap:     func(b []byte) any { return hex.EncodeToString(b) },
	},
}

var carrierOrder = []string{"base64", "binary", "hex"}

// NewUnwrapper decodes carried bytes as any image and encodes them as to.
func NewUnwrapper(from, to string) *converter.Func {
	c, dst := carriers[from], codecs[to]
	return converter.New(from, to, func(data any, opts converter.Options) (any, error) {
		raw, err := unwrapCarrier(c, data, from, to)
		if err != nil {
			return nil, err
		}
		img, err := readImage(raw, anyImage, from, to)
		if err != nil {
			return nil, err
		}
		return writeImage(img, dst, from, to, opts)
	},
		converter.WithDescription(fmt.Sprintf("Convert %s encoded image to %s", from, to)),
		converter.WithValidator(c.validate))
}

// NewWrapper checks that the input is a from image and returns its bytes
// in the to carrier.
func NewWrapper(from, to string) *converter.Func {
	src, c := codecs[from], carriers[to]
	return converter.New(from, to, func(data any, _ converter.Options) (any, error) {
		raw := data.([]byte)
		if _, err := readImage(raw, src, from, to); err != nil {
			return nil, err
		}
		return c.wrap(raw), nil
	},
		converter.WithDescription(fmt.Sprintf("Convert %s image to %s", from, to)),
		converter.WithValidator(converter.ExpectBytes),
		converter.WithoutOptions())
}

func imageToBase64() *converter.Func {
	return converter.New("image", "base64", func(data any, _ converter.Options) (any, error) {
		raw := data.([]byte)
		if _, err := readImage(raw, anyImage, "image", "base64"); err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	},
		converter.WithDescription("Convert image bytes of any supported format to base64"),
		converter.WithValidator(converter.ExpectBytes),
		converter.WithoutOptions())
}

func base64ToImage() *converter.Func {
	return converter.New("base64", "image", func(data any, _ converter.Options) (any, error) {
		raw, err := unwrapCarrier(carriers["base64"], data, "base64", "image")
		if err != nil {
			return nil, err
		}
		if _, err := readImage(raw, anyImage, "base64", "image"); err != nil {
			return nil, err
		}
		return raw, nil
	},
		converter.WithDescription("Convert base64 to image bytes, verifying they decode"),
		converter.WithValidator(converter.ExpectString),
		converter.WithoutOptions())
}

func unwrapCarrier(c carrier, data any, from, to string) ([]byte, error) {
	raw, err := c.unwrap(data)
	if err != nil {
		return nil, errors.NewConversion(fmt.Sprintf("invalid %s image data: %v", from, err), from, to, err)
	}
	return raw, nil
}
