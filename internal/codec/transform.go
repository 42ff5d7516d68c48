package codec

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Rect is a crop rectangle in normalized [0,1] coordinates.
type Rect struct {
	X, Y, W, H float64
}

// ReadOrientation returns the EXIF orientation tag of data, or 1 when the
// image carries none.
func ReadOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// ApplyOrientation rotates or flips img so that an image tagged with the
// given EXIF orientation displays upright. The result is always NRGBA.
func ApplyOrientation(img image.Image, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// ClampCrop clamps each component of r to [0,1].
func ClampCrop(r Rect) Rect {
	return Rect{X: clamp01(r.X), Y: clamp01(r.Y), W: clamp01(r.W), H: clamp01(r.H)}
}

// CropBox converts a normalized rectangle into a pixel box within a
// width x height image. The box is clipped to the image and is at least one
// pixel in each dimension.
func CropBox(width, height int, r Rect) image.Rectangle {
	r = ClampCrop(r)
	x0 := int(r.X * float64(width))
	y0 := int(r.Y * float64(height))
	x1 := int((r.X + r.W) * float64(width))
	y1 := int((r.Y + r.H) * float64(height))

	x0, y0 = min(x0, width-1), min(y0, height-1)
	x1, y1 = max(min(x1, width), x0+1), max(min(y1, height), y0+1)
	return image.Rect(x0, y0, x1, y1)
}

// Crop applies a normalized crop rectangle.
func Crop(img image.Image, r Rect) *image.NRGBA {
	b := img.Bounds()
	box := CropBox(b.Dx(), b.Dy(), r).Add(b.Min)
	return imaging.Crop(img, box)
}

// CoverBox returns the centered box of a width x height image that matches
// the aspect ratio of targetW x targetH.
func CoverBox(width, height, targetW, targetH int) image.Rectangle {
	targetRatio := float64(targetW) / float64(targetH)
	srcRatio := 1.0
	if height > 0 {
		srcRatio = float64(width) / float64(height)
	}
	if srcRatio > targetRatio {
		newW := max(int(float64(height)*targetRatio), 1)
		x0 := (width - newW) / 2
		return image.Rect(x0, 0, x0+newW, height)
	}
	newH := max(int(float64(width)/targetRatio), 1)
	y0 := (height - newH) / 2
	return image.Rect(0, y0, width, y0+newH)
}

// Resize scales img into a width x height box. FitContain preserves the
// aspect ratio and never upscales; FitCover crops the centered box matching
// the target aspect ratio and resizes it to exactly width x height.
func Resize(img image.Image, width, height int, fit Fit) *image.NRGBA {
	b := img.Bounds()
	if fit == FitContain {
		if b.Dx() <= width && b.Dy() <= height {
			return imaging.Clone(img)
		}
		return imaging.Fit(img, width, height, imaging.Lanczos)
	}

	box := CoverBox(b.Dx(), b.Dy(), width, height).Add(b.Min)
	return imaging.Resize(imaging.Crop(img, box), width, height, imaging.Lanczos)
}
