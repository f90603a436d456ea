// internal/depth/depth.go

// Package depth decodes the depth payloads uploaded by the capture apps into
// meter-scaled depth maps.
package depth

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/portion"
)

const (
	// EncodingF32Gzip is a gzip-compressed little-endian float32 plane in meters.
	EncodingF32Gzip = "f32_gzip"

	// MaxDepthPixels bounds the width*height a client may declare or upload.
	MaxDepthPixels = 4096 * 4096

	// PNG16 values above this are taken to be millimeters.
	millimeterThreshold = 10
	millimetersPerMeter = 1000.0
	bytesPerFloat32     = 4
)

func checkPlaneSize(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDepthPixels/height {
		return apperr.Malformedf("depth plane size %dx%d (limit %d pixels)", width, height, MaxDepthPixels)
	}
	return nil
}

// Payload carries the raw depth parts of an analysis request.
type Payload struct {
	PNG16    []byte
	F32      []byte
	Encoding string
	Width    int
	Height   int
}

// Decode returns the depth map carried by p, or nil when p carries none.
// A 16-bit PNG takes precedence over a float plane.
func Decode(p Payload) (*portion.DepthMap, error) {
	if len(p.PNG16) > 0 {
		return DecodePNG16(p.PNG16)
	}
	if len(p.F32) > 0 && p.Encoding == EncodingF32Gzip {
		return DecodeF32Gzip(p.F32, p.Width, p.Height)
	}
	return nil, nil
}

// DecodePNG16 reads a grayscale PNG. If any sample exceeds 10 the image is in
// millimeters and every sample is scaled to meters.
func DecodePNG16(data []byte) (*portion.DepthMap, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Malformedf("depth png: %v", err)
	}
	if err := checkPlaneSize(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Malformedf("depth png: %v", err)
	}

	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	values := make([]float64, 0, h*w)
	maxRaw := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := rawSample(img, x, y)
			maxRaw = math.Max(maxRaw, v)
			values = append(values, v)
		}
	}
	if maxRaw > millimeterThreshold {
		for i := range values {
			values[i] /= millimetersPerMeter
		}
	}
	return portion.NewDepthMapFromValues(h, w, values)
}

func rawSample(img image.Image, x, y int) float64 {
	switch m := img.(type) {
	case *image.Gray16:
		return float64(m.Gray16At(x, y).Y)
	case *image.Gray:
		return float64(m.GrayAt(x, y).Y)
	default:
		return float64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
	}
}

// DecodeF32Gzip inflates a width*height little-endian float32 plane. Inflation
// stops one byte past the declared size.
func DecodeF32Gzip(data []byte, width, height int) (*portion.DepthMap, error) {
	if err := checkPlaneSize(width, height); err != nil {
		return nil, err
	}
	want := bytesPerFloat32 * width * height
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Malformedf("depth plane gzip: %v", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, int64(want)+1))
	if err != nil {
		return nil, apperr.Malformedf("depth plane gzip: %v", err)
	}
	if len(raw) > want {
		return nil, apperr.Malformedf("depth plane inflates past %d bytes for %dx%d", want, width, height)
	}
	if len(raw) != want {
		return nil, apperr.Malformedf("depth plane has %d bytes, want %d for %dx%d", len(raw), want, width, height)
	}

	values := make([]float64, width*height)
	for i := range values {
		values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[bytesPerFloat32*i:])))
	}
	return portion.NewDepthMapFromValues(height, width, values)
}
