// Package codec turns source image bytes into encoded thumbnails.
//
// Decoding goes through imaging with the x/image decoders registered for
// WebP, BMP and TIFF. When the pure-Go decoders reject an input and libvips
// has been started with InitVips, decoding is retried through govips. A
// configurable pixel ceiling is checked before any pixels are allocated.
//
// EXIF orientation is read with goexif and applied with imaging's
// flip/rotate transforms, so every decoded image comes back upright as
// *image.NRGBA.
//
// Encoding supports jpeg, png and gif through imaging. WebP encoding needs
// libvips; callers should use Supported to pick a fallback when it is not
// available.
package codec
