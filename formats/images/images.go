// Package images registers raster image transcoders. Every ordered pair of
// png, jpeg, gif, bmp and tiff gets a converter, and webp can be decoded to
// png or jpeg. Inputs and outputs are encoded image bytes.
//
// Images also travel as base64, hex or binary. Each format converts to and
// from those carriers, and the generic "image" format accepts any decodable
// image. Carried bytes are always decoded before they are accepted.
//
// Options: quality (jpeg, 1-100, default 95) and num_colors (gif, 1-256,
// default 256). Transcoding is lossy for jpeg and gif targets.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

// MaxPixels bounds decoded image size.
const MaxPixels = 50_000_000

type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
	encode       func(io.Writer, image.Image, converter.Options) error
	opaque       bool
}

var codecs = map[string]codec{
	"png":  {decode: png.Decode, decodeConfig: png.DecodeConfig, encode: encodePNG},
	"jpeg": {decode: jpeg.Decode, decodeConfig: jpeg.DecodeConfig, encode: encodeJPEG, opaque: true},
	"gif":  {decode: gif.Decode, decodeConfig: gif.DecodeConfig, encode: encodeGIF},
	"bmp":  {decode: bmp.Decode, decodeConfig: bmp.DecodeConfig, encode: encodeBMP},
	"tiff": {decode: tiff.Decode, decodeConfig: tiff.DecodeConfig, encode: encodeTIFF},
	"webp": {decode: webp.Decode, decodeConfig: webp.DecodeConfig},
}

// order fixes registration order; webp is decode only.
var order = []string{"png", "jpeg", "gif", "bmp", "tiff", "webp"}

// anyImage sniffs the format from the registered decoders.
var anyImage = codec{
	decode: func(r io.Reader) (image.Image, error) {
		img, _, err := image.Decode(r)
		return img, err
	},
	decodeConfig: func(r io.Reader) (image.Config, error) {
		cfg, _, err := image.DecodeConfig(r)
		return cfg, err
	},
}

// Pairs lists every registered (from, to) combination.
func Pairs() [][2]string {
	cs := Converters()
	pairs := make([][2]string, 0, len(cs))
	for _, c := range cs {
		pairs = append(pairs, [2]string{c.From(), c.To()})
	}
	return pairs
}

// Converters returns the transcoders followed by the carrier converters.
func Converters() []converter.Converter {
	var out []converter.Converter
	for _, from := range order {
		for _, to := range order {
			if from == to || codecs[to].encode == nil {
				continue
			}
			if from == "webp" && to != "png" && to != "jpeg" {
				continue
			}
			out = append(out, NewTranscoder(from, to))
		}
	}
	for _, name := range carrierOrder {
		for _, f := range order {
			if codecs[f].encode != nil {
				out = append(out, NewUnwrapper(name, f))
			}
			out = append(out, NewWrapper(f, name))
		}
	}
	return append(out, imageToBase64(), base64ToImage())
}

// Register adds every image converter to reg.
func Register(reg *registry.Registry) error {
	for _, c := range Converters() {
		if err := reg.Register(c); err != nil {
			return errors.WrapInvalid(err, "images", "Register", c.From()+" -> "+c.To())
		}
	}
	return nil
}

// NewTranscoder builds a one-way converter decoding from and encoding to.
func NewTranscoder(from, to string) *converter.Func {
	return converter.New(from, to, transcode(from, to),
		converter.WithDescription(fmt.Sprintf("Convert %s image to %s", from, to)),
		converter.WithValidator(converter.ExpectBytes))
}

func transcode(from, to string) converter.TransformFunc {
	src, dst := codecs[from], codecs[to]
	return func(data any, opts converter.Options) (any, error) {
		img, err := readImage(data.([]byte), src, from, to)
		if err != nil {
			return nil, err
		}
		return writeImage(img, dst, from, to, opts)
	}
}

// readImage checks the pixel bound from the header, then decodes raw.
func readImage(raw []byte, src codec, from, to string) (image.Image, error) {
	cfg, err := src.decodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.NewConversion(fmt.Sprintf("invalid %s image: %v", from, err), from, to, err)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, errors.Validationf(from, "image is %dx%d, exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := src.decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.NewConversion(fmt.Sprintf("invalid %s image: %v", from, err), from, to, err)
	}
	return img, nil
}

func writeImage(img image.Image, dst codec, from, to string, opts converter.Options) ([]byte, error) {
	if dst.opaque {
		img = flatten(img)
	}

	var buf bytes.Buffer
	if err := dst.encode(&buf, img, opts); err != nil {
		if ce, ok := errors.AsConversion(err); ok {
			return nil, ce.WithPair(from, to)
		}
		return nil, errors.NewConversion(fmt.Sprintf("failed to encode %s: %v", to, err), from, to, err)
	}
	return buf.Bytes(), nil
}

// flatten composites img over white, dropping transparency.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

func encodePNG(w io.Writer, img image.Image, _ converter.Options) error {
	return png.Encode(w, img)
}

func encodeJPEG(w io.Writer, img image.Image, opts converter.Options) error {
	q, err := opts.Int("quality", 95)
	if err != nil {
		return err
	}
	if q < 1 || q > 100 {
		return errors.Validationf("", "quality must be between 1 and 100, got %d", q)
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

func encodeGIF(w io.Writer, img image.Image, opts converter.Options) error {
	n, err := opts.Int("num_colors", 256)
	if err != nil {
		return err
	}
	if n < 1 || n > 256 {
		return errors.Validationf("", "num_colors must be between 1 and 256, got %d", n)
	}
	return gif.Encode(w, img, &gif.Options{NumColors: n})
}

func encodeBMP(w io.Writer, img image.Image, _ converter.Options) error {
	return bmp.Encode(w, img)
}

func encodeTIFF(w io.Writer, img image.Image, _ converter.Options) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}
