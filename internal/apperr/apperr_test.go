package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("album 3: %w", ErrNotFound), http.StatusNotFound},
		{"no images", ErrNoImages, http.StatusNotFound},
		{"invalid", fmt.Errorf("bad fit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"decode", fmt.Errorf("x.jpg: %w", ErrDecodeFailure), http.StatusUnprocessableEntity},
		{"archive", fmt.Errorf("a.zip: %w", ErrCorruptArchive), http.StatusUnprocessableEntity},
		{"race", ErrFilesystemRace, http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNoImagesIsNotFound(t *testing.T) {
	if !errors.Is(ErrNoImages, ErrNotFound) {
		t.Error("ErrNoImages should match ErrNotFound")
	}
	if errors.Is(ErrNotFound, ErrNoImages) {
		t.Error("ErrNotFound should not match ErrNoImages")
	}
}
