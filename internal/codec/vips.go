package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"album-viewer/internal/apperr"
	"album-viewer/internal/logging"
)

var (
	vipsMu        sync.Mutex
	vipsAvailable bool
)

// vipsLogSettings maps the application log level onto libvips verbosity and
// a handler that forwards into our logger.
func vipsLogSettings(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	forward := func(floor vips.LogLevel) func(string, vips.LogLevel, string) {
		return func(domain string, l vips.LogLevel, msg string) {
			if l > floor {
				return
			}
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	}

	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, forward(vips.LogLevelDebug)
	case logging.LevelInfo:
		return vips.LogLevelWarning, forward(vips.LogLevelWarning)
	case logging.LevelWarn:
		return vips.LogLevelError, forward(vips.LogLevelError)
	default:
		return vips.LogLevelCritical, forward(vips.LogLevelCritical)
	}
}

// InitVips starts libvips. It should be called once at startup; WebP
// encoding and the fallback decoder are unavailable until it is.
func InitVips(concurrency int) {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsAvailable {
		return
	}

	verbosity, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, verbosity)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: max(concurrency, 1),
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsAvailable {
		vips.Shutdown()
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// VipsVersion returns the libvips version string.
func VipsVersion() string {
	return vips.Version
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsAvailable
}

func decodeWithVips(data []byte, maxPixels int) (*image.NRGBA, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips decode: %v: %w", err, apperr.ErrDecodeFailure)
	}
	defer ref.Close()

	if err := checkPixels(ref.Width(), ref.Height(), maxPixels); err != nil {
		return nil, err
	}
	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips autorotate: %v: %w", err, apperr.ErrDecodeFailure)
	}

	png, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export: %v: %w", err, apperr.ErrDecodeFailure)
	}
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %v: %w", err, apperr.ErrDecodeFailure)
	}
	return imaging.Clone(img), nil
}

func encodeWebPWithVips(img image.Image, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("webp encoding requires libvips: %w", apperr.ErrInvalidInput)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
		return nil, fmt.Errorf("stage webp input: %w", err)
	}
	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	params := vips.NewWebpExportParams()
	params.Quality = quality
	params.ReductionEffort = 4
	params.StripMetadata = true
	out, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("vips webp export: %w", err)
	}
	return out, nil
}
