// Package normalize converts user-selected images into size-bounded JPEGs.
//
// Normalization is a two stage pipeline: a format bridge that converts
// HEIC/HEIF camera photos to JPEG through an external decoder, then a
// resize/re-encode stage that bounds the longest edge and re-encodes at a
// fixed quality. Neither stage ever fails the caller: on any error the most
// processed valid byte sequence is returned, worst case the original input.
package normalize

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxDimension bounds the longest edge of the output image.
	DefaultMaxDimension = 1600

	// DefaultQuality is the JPEG encode quality.
	DefaultQuality = 85

	// JPEGMimeType is the media type of re-encoded output.
	JPEGMimeType = "image/jpeg"
)

// Normalizer converts raw image bytes into a standard, size-bounded JPEG.
type Normalizer struct {
	MaxDimension  int
	Quality       int
	ConverterPath string // external HEIF decoder binary; empty uses DefaultConverter
}

// New creates a normalizer with default settings.
func New() *Normalizer {
	return &Normalizer{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
	}
}

// Result is the outcome of normalizing one image.
type Result struct {
	Data     []byte
	MimeType string
	Width    int  // 0 when the input could not be decoded
	Height   int  // 0 when the input could not be decoded
	Bridged  bool // the HEIF bridge produced the working bytes
	Encoded  bool // the resize stage re-encoded the output
}

// Normalize runs the pipeline on raw file bytes. mimeType may be empty;
// filename is only consulted for format detection. It never returns an
// error: undecodable input comes back as-is.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, mimeType, filename string) Result {
	working := data
	workingMime := mimeType
	bridged := false

	if isHighEfficiency(mimeType, filename) {
		if converted, err := n.convertToJPEG(ctx, data); err == nil {
			working = converted
			workingMime = JPEGMimeType
			bridged = true
		}
		// Conversion failure keeps the original bytes; the resize stage
		// below will likely fail to decode too and pass them through.
	}

	encoded, width, height, err := n.resize(working)
	if err != nil {
		return Result{Data: working, MimeType: workingMime, Bridged: bridged}
	}

	return Result{
		Data:     encoded,
		MimeType: JPEGMimeType,
		Width:    width,
		Height:   height,
		Bridged:  bridged,
		Encoded:  true,
	}
}

// resize decodes the image, downscales so the longest edge fits
// MaxDimension (never upscaling), and re-encodes as JPEG.
func (n *Normalizer) resize(data []byte) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	longest := srcW
	if srcH > longest {
		longest = srcH
	}
	if longest <= 0 {
		return nil, 0, 0, image.ErrFormat
	}

	scale := math.Min(1, float64(n.MaxDimension)/float64(longest))
	targetW := int(math.Round(float64(srcW) * scale))
	targetH := int(math.Round(float64(srcH) * scale))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), targetW, targetH, nil
}
