package codec

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"album-viewer/internal/apperr"
	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

// DefaultMaxPixels is the decode ceiling used when none is configured.
const DefaultMaxPixels = 178_000_000

// Format is an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
)

// ParseFormat accepts jpeg, jpg, png, webp and gif in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "gif":
		return FormatGIF, nil
	}
	return "", fmt.Errorf("unsupported format %q: %w", s, apperr.ErrInvalidInput)
}

// Ext returns the file extension used for artifacts of this format.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Fit is a resize policy.
type Fit string

const (
	// FitCover crops to the target aspect ratio and fills the box exactly.
	FitCover Fit = "cover"
	// FitContain scales down to fit inside the box without cropping.
	FitContain Fit = "contain"
)

// ParseFit maps anything other than "contain" to FitCover.
func ParseFit(s string) Fit {
	if strings.EqualFold(strings.TrimSpace(s), string(FitContain)) {
		return FitContain
	}
	return FitCover
}

// Decode decodes data, refusing images larger than maxPixels, and returns
// the upright NRGBA image. A maxPixels of zero or less means
// DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (*image.NRGBA, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, format, cfgErr := image.DecodeConfig(bytes.NewReader(data))
	if cfgErr == nil {
		if err := checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err == nil {
			metrics.ThumbnailDecodeByFormat.WithLabelValues(format, "native").Inc()
			return ApplyOrientation(img, ReadOrientation(data)), nil
		}
		cfgErr = err
	}

	if IsVipsAvailable() {
		logging.Debug("Native decode failed (%v), trying libvips", cfgErr)
		img, err := decodeWithVips(data, maxPixels)
		if err == nil {
			if format == "" {
				format = "unknown"
			}
			metrics.ThumbnailDecodeByFormat.WithLabelValues(format, "vips").Inc()
			return img, nil
		}
		return nil, err
	}

	return nil, fmt.Errorf("decode image: %v: %w", cfgErr, apperr.ErrDecodeFailure)
}

func checkPixels(w, h, maxPixels int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("image has no pixels (%dx%d): %w", w, h, apperr.ErrDecodeFailure)
	}
	if int64(w)*int64(h) > int64(maxPixels) {
		return fmt.Errorf("image %dx%d exceeds pixel limit %d: %w", w, h, maxPixels, apperr.ErrDecodeFailure)
	}
	return nil
}
