package images

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(registry.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, Register(reg))
	return reg
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	// Transparent 2x2 corner, aligned with jpeg chroma subsampling.
	for _, p := range []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		img.Set(p.X, p.Y, color.NRGBA{A: 0})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeAs(t *testing.T, name string, b []byte) image.Image {
	t.Helper()
	decoders := map[string]func(*bytes.Reader) (image.Image, error){
		"png":  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		"jpeg": func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
		"gif":  func(r *bytes.Reader) (image.Image, error) { return gif.Decode(r) },
		"bmp":  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
		"tiff": func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
	}
	img, err := decoders[name](bytes.NewReader(b))
	require.NoError(t, err, "output must decode as %s", name)
	return img
}

func TestPairs(t *testing.T) {
	pairs := Pairs()
	// 22 transcoders, 15 carrier to format, 18 format to carrier, image <-> base64
	assert.Len(t, pairs, 57)
	assert.Contains(t, pairs, [2]string{"webp", "png"})
	assert.Contains(t, pairs, [2]string{"webp", "jpeg"})
	assert.NotContains(t, pairs, [2]string{"png", "webp"})
	assert.NotContains(t, pairs, [2]string{"webp", "gif"})

	for _, c := range []string{"base64", "binary", "hex"} {
		assert.Contains(t, pairs, [2]string{c, "png"})
		assert.Contains(t, pairs, [2]string{"webp", c})
		assert.NotContains(t, pairs, [2]string{c, "webp"})
	}
	assert.Contains(t, pairs, [2]string{"image", "base64"})
	assert.Contains(t, pairs, [2]string{"base64", "image"})

	reg := newRegistry(t)
	assert.Equal(t, len(pairs), reg.Len())
}

func TestTranscode_FromPNG(t *testing.T) {
	reg := newRegistry(t)
	src := samplePNG(t)

	for _, target := range []string{"jpeg", "gif", "bmp", "tiff"} {
		t.Run(target, func(t *testing.T) {
			out, err := reg.Convert(src, "png", target, nil)
			require.NoError(t, err)

			img := decodeAs(t, target, out.([]byte))
			assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
		})
	}
}

func TestTranscode_Chain(t *testing.T) {
	reg := newRegistry(t)

	current := any(samplePNG(t))
	from := "png"
	for _, to := range []string{"bmp", "tiff", "gif", "png"} {
		out, err := reg.Convert(current, from, to, nil)
		require.NoError(t, err, "%s -> %s", from, to)
		current, from = out, to
	}
	img := decodeAs(t, "png", current.([]byte))
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestTranscode_JPEGFlattensTransparency(t *testing.T) {
	reg := newRegistry(t)

	out, err := reg.Convert(samplePNG(t), "png", "jpeg", converter.Options{"quality": 100})
	require.NoError(t, err)

	r, g, b, _ := decodeAs(t, "jpeg", out.([]byte)).At(0, 0).RGBA()
	assert.Greater(t, r>>8, uint32(200), "transparent pixel is composited on white")
	assert.Greater(t, g>>8, uint32(200))
	assert.Greater(t, b>>8, uint32(200))
}

func TestTranscode_Failures(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Convert("not bytes", "png", "jpeg", nil)
	assert.True(t, errors.IsValidation(err), "got %v", err)

	_, err = reg.Convert([]byte("not an image"), "png", "gif", nil)
	assert.True(t, errors.IsConversion(err), "got %v", err)

	_, err = reg.Convert([]byte("RIFF0000WEBPjunk"), "webp", "png", nil)
	assert.True(t, errors.IsConversion(err), "got %v", err)

	_, err = reg.Convert(samplePNG(t), "png", "jpeg", converter.Options{"quality": 0})
	require.True(t, errors.IsValidation(err), "got %v", err)
	ce, _ := errors.AsConversion(err)
	assert.Equal(t, "png", ce.From)

	_, err = reg.Convert(samplePNG(t), "png", "jpeg", converter.Options{"quality": 2.7})
	assert.True(t, errors.IsValidation(err), "fractional quality, got %v", err)

	_, err = reg.Convert(samplePNG(t), "png", "gif", converter.Options{"num_colors": 300})
	assert.True(t, errors.IsValidation(err), "got %v", err)

	_, err = reg.Convert(samplePNG(t), "png", "webp", nil)
	assert.True(t, errors.IsUnsupportedFormat(err))
}

func TestCarriers_RoundTrip(t *testing.T) {
	reg := newRegistry(t)
	src := samplePNG(t)

	tests := []struct {
		carrier string
		check   func(t *testing.T, carried any)
	}{
		{"base64", func(t *testing.T, carried any) {
			assert.Equal(t, base64.StdEncoding.EncodeToString(src), carried)
		}},
		{"hex", func(t *testing.T, carried any) {
			assert.Equal(t, hex.EncodeToString(src), carried)
		}},
		{"binary", func(t *testing.T, carried any) {
			assert.Equal(t, src, carried)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.carrier, func(t *testing.T) {
			carried, err := reg.Convert(src, "png", tt.carrier, nil)
			require.NoError(t, err)
			tt.check(t, carried)

			for _, target := range []string{"png", "jpeg", "gif", "bmp", "tiff"} {
				out, err := reg.Convert(carried, tt.carrier, target, nil)
				require.NoError(t, err, "%s -> %s", tt.carrier, target)
				img := decodeAs(t, target, out.([]byte))
				assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
			}
		})
	}
}

func TestCarriers_SniffSourceFormat(t *testing.T) {
	reg := newRegistry(t)

	bmpBytes, err := reg.Convert(samplePNG(t), "png", "bmp", nil)
	require.NoError(t, err)

	// The carried bytes may hold any supported format.
	out, err := reg.Convert(hex.EncodeToString(bmpBytes.([]byte)), "hex", "png", nil)
	require.NoError(t, err)
	assert.Equal(t, 8, decodeAs(t, "png", out.([]byte)).Bounds().Dx())

	// The labelled source format must match the bytes.
	_, err = reg.Convert(bmpBytes, "png", "base64", nil)
	assert.True(t, errors.IsConversion(err), "got %v", err)
}

func TestGenericImage(t *testing.T) {
	reg := newRegistry(t)

	gifBytes, err := reg.Convert(samplePNG(t), "png", "gif", nil)
	require.NoError(t, err)

	encoded, err := reg.Convert(gifBytes, "image", "base64", nil)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(gifBytes.([]byte)), encoded)

	decoded, err := reg.Convert(encoded, "base64", "image", nil)
	require.NoError(t, err)
	assert.Equal(t, gifBytes, decoded)
}

func TestCarriers_RejectNonImages(t *testing.T) {
	reg := newRegistry(t)
	notImage := []byte("plain text, not pixels")

	tests := []struct {
		name     string
		data     any
		from, to string
	}{
		{"base64 text to image", base64.StdEncoding.EncodeToString(notImage), "base64", "image"},
		{"base64 text to png", base64.StdEncoding.EncodeToString(notImage), "base64", "png"},
		{"hex text to jpeg", hex.EncodeToString(notImage), "hex", "jpeg"},
		{"bits to gif", "0110100001101001", "binary", "gif"},
		{"text bytes as image", notImage, "image", "base64"},
		{"text bytes as png", notImage, "png", "binary"},
		{"malformed base64", "%%%", "base64", "image"},
		{"malformed hex", "zz", "hex", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Convert(tt.data, tt.from, tt.to, nil)
			assert.True(t, errors.IsConversion(err), "got %v", err)
		})
	}

	_, err := reg.Convert(42, "hex", "png", nil)
	assert.True(t, errors.IsValidation(err), "got %v", err)
}
