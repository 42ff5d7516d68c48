package mediatypes

import (
	"path"
	"strings"
)

// EntryKind classifies an item shown when browsing inside a folder album.
type EntryKind string

const (
	// EntryFolder is a sub-directory.
	EntryFolder EntryKind = "folder"
	// EntryZip is a zip archive.
	EntryZip EntryKind = "zip"
	// EntryImage is a supported image file.
	EntryImage EntryKind = "image"
	// EntryOther is anything else.
	EntryOther EntryKind = "other"
)

// SortOrder specifies the direction of sorting.
type SortOrder string

const (
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts in descending order.
	SortDesc SortOrder = "desc"
)

// ImageExtensions maps lowercase extensions to whether they are images the
// codec can decode.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// MimeTypes maps extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".zip":  "application/zip",
}

// Ext returns the lowercase extension of name, including the dot. Both
// slash styles are treated as separators so zip member names work too.
func Ext(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return strings.ToLower(path.Ext(name))
}

// IsImageName reports whether name has a supported image extension.
func IsImageName(name string) bool {
	return ImageExtensions[Ext(name)]
}

// IsZipName reports whether name has a .zip extension.
func IsZipName(name string) bool {
	return Ext(name) == ".zip"
}

// GetMimeType returns the MIME type for an extension such as ".jpg", or
// "application/octet-stream" if it is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// BaseWithoutExt returns the last element of p without its extension.
func BaseWithoutExt(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
