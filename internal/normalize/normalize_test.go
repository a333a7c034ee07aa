package normalize

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, w, h int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func testJPEG(t *testing.T, w, h int) []byte {
	return encodeTestImage(t, w, h, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})
}

func testPNG(t *testing.T, w, h int) []byte {
	return encodeTestImage(t, w, h, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
}

func decodeDims(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

func TestNormalizeDownscalesLargeImage(t *testing.T) {
	n := New()
	input := testJPEG(t, 3200, 1600)

	result := n.Normalize(context.Background(), input, "image/jpeg", "wide.jpg")

	assert.True(t, result.Encoded)
	assert.Equal(t, JPEGMimeType, result.MimeType)
	assert.Equal(t, 1600, result.Width)
	assert.Equal(t, 800, result.Height)

	w, h, format := decodeDims(t, result.Data)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 800, h)
	assert.Equal(t, "jpeg", format)
}

func TestNormalizeDownscalesPortrait(t *testing.T) {
	n := New()
	input := testJPEG(t, 1000, 4000)

	result := n.Normalize(context.Background(), input, "image/jpeg", "tall.jpg")

	assert.Equal(t, 400, result.Width)
	assert.Equal(t, 1600, result.Height)
}

func TestNormalizeNeverUpscales(t *testing.T) {
	n := New()
	input := testJPEG(t, 800, 600)

	result := n.Normalize(context.Background(), input, "image/jpeg", "small.jpg")

	assert.True(t, result.Encoded)
	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 600, result.Height)

	w, h, _ := decodeDims(t, result.Data)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestNormalizeReencodesPNGAsJPEG(t *testing.T) {
	n := New()
	input := testPNG(t, 2000, 500)

	result := n.Normalize(context.Background(), input, "image/png", "shot.png")

	assert.Equal(t, JPEGMimeType, result.MimeType)
	assert.Equal(t, 1600, result.Width)
	assert.Equal(t, 400, result.Height)

	_, _, format := decodeDims(t, result.Data)
	assert.Equal(t, "jpeg", format)
}

func TestNormalizeRoundsTargetDimensions(t *testing.T) {
	n := New()
	// 1700x1100 scaled by 1600/1700 gives 1035.29..., which rounds to 1035.
	input := testJPEG(t, 1700, 1100)

	result := n.Normalize(context.Background(), input, "image/jpeg", "odd.jpg")

	assert.Equal(t, 1600, result.Width)
	assert.Equal(t, 1035, result.Height)
}

func TestNormalizeMalformedInputFallsBack(t *testing.T) {
	n := New()
	garbage := []byte("this is not an image at all")

	result := n.Normalize(context.Background(), garbage, "image/jpeg", "broken.jpg")

	assert.False(t, result.Encoded)
	assert.Equal(t, garbage, result.Data)
	assert.Equal(t, "image/jpeg", result.MimeType)
	assert.Zero(t, result.Width)
	assert.Zero(t, result.Height)
}

func TestNormalizeEmptyInputFallsBack(t *testing.T) {
	n := New()

	result := n.Normalize(context.Background(), nil, "", "")

	assert.False(t, result.Encoded)
	assert.Empty(t, result.Data)
}

func TestNormalizeHEIFWithoutConverterFallsBack(t *testing.T) {
	n := New()
	n.ConverterPath = "/nonexistent/heif-convert"
	input := []byte("pretend heic bytes")

	result := n.Normalize(context.Background(), input, "image/heic", "IMG_0001.HEIC")

	// Bridge fails silently; resize cannot decode either, so the original
	// bytes pass straight through.
	assert.False(t, result.Bridged)
	assert.False(t, result.Encoded)
	assert.Equal(t, input, result.Data)
	assert.Equal(t, "image/heic", result.MimeType)
}

func TestNormalizeHEIFWithFakeConverter(t *testing.T) {
	// A stand-in decoder that emits a real JPEG lets the full pipeline run
	// without libheif installed.
	jpegOut := testJPEG(t, 2400, 1200)
	dir := t.TempDir()
	payload := dir + "/payload.jpg"
	require.NoError(t, os.WriteFile(payload, jpegOut, 0o600))

	script := dir + "/fake-convert"
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncp \""+payload+"\" \"$2\"\n"), 0o755))

	n := New()
	n.ConverterPath = script

	result := n.Normalize(context.Background(), []byte("heic container"), "image/heif", "IMG_0002.heif")

	assert.True(t, result.Bridged)
	assert.True(t, result.Encoded)
	assert.Equal(t, 1600, result.Width)
	assert.Equal(t, 800, result.Height)
	assert.Equal(t, JPEGMimeType, result.MimeType)
}

func TestIsHighEfficiency(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		filename string
		expected bool
	}{
		{"heic mime", "image/heic", "photo.bin", true},
		{"heif mime", "image/heif", "", true},
		{"mixed case mime", "Image/HEIC", "", true},
		{"heic extension", "application/octet-stream", "IMG_1234.HEIC", true},
		{"heif extension", "", "trip.heif", true},
		{"plain jpeg", "image/jpeg", "plate.jpg", false},
		{"png", "image/png", "plate.png", false},
		{"heic in middle of name", "", "heical-drawing.png", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHighEfficiency(tt.mimeType, tt.filename))
		})
	}
}
