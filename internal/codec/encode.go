package codec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"album-viewer/internal/apperr"
)

// DefaultQuality is used when a caller passes a quality outside 1..100.
const DefaultQuality = 75

// Supported reports whether format can be encoded in this process.
func Supported(format Format) bool {
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF:
		return true
	case FormatWebP:
		return IsVipsAvailable()
	}
	return false
}

// Encode encodes img in the given format. Quality applies to jpeg and webp.
func Encode(img image.Image, format Format, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatGIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case FormatWebP:
		return encodeWebPWithVips(img, quality)
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", format, apperr.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
