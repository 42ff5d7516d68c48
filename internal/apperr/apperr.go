// Package apperr defines the error categories shared by the indexing and
// thumbnail packages. Errors are wrapped with fmt.Errorf("...: %w") at the
// point of failure and classified by callers with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound means an album, entry or directory does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means a request was rejected before any I/O was done.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptArchive means a zip file could not be opened as an archive.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrDecodeFailure means an image could not be decoded, or it exceeds the
	// configured pixel ceiling.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrFilesystemRace means a file vanished between an existence check and
	// the subsequent open.
	ErrFilesystemRace = errors.New("file disappeared")

	// ErrNoImages means neither an album nor any of its descendants contain
	// an image. It matches ErrNotFound.
	ErrNoImages = &wrapped{msg: "no images in album or its children", base: ErrNotFound}
)

type wrapped struct {
	msg  string
	base error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.base }

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDecodeFailure), errors.Is(err, ErrCorruptArchive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrFilesystemRace):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
