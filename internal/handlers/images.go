package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"album-viewer/internal/codec"
	"album-viewer/internal/database"
	"album-viewer/internal/library"
	"album-viewer/internal/mediatypes"
	"album-viewer/internal/thumbcache"
)

// Cover defaults when the query leaves them out.
const (
	defaultCoverWidth  = 640
	defaultCoverHeight = 960
)

// Artifacts are content-addressed, so clients may cache them for a long time.
const imageCacheControl = "public, max-age=86400"

// multipartMemory is the part of a cover upload kept in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// imageParams parses the size, fit, format and quality parameters shared by
// the cover and thumbnail endpoints.
type imageParams struct {
	width, height int
	fit           codec.Fit
	format        codec.Format
	quality       int
}

func parseImageParams(r *http.Request, defWidth, defHeight int) (imageParams, error) {
	var p imageParams
	var err error
	if p.width, err = queryInt(r, "w", defWidth); err != nil {
		return p, err
	}
	if p.height, err = queryInt(r, "h", defHeight); err != nil {
		return p, err
	}
	if p.quality, err = queryInt(r, "q", 0); err != nil {
		return p, err
	}
	q := r.URL.Query()
	p.fit = codec.ParseFit(q.Get("fit"))
	if f := q.Get("fmt"); f != "" {
		if p.format, err = codec.ParseFormat(f); err != nil {
			return p, err
		}
	}
	return p, nil
}

// serveArtifact sends a cached thumbnail file.
func serveArtifact(w http.ResponseWriter, r *http.Request, res thumbcache.Result) {
	w.Header().Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(res.FilePath)))
	w.Header().Set("Cache-Control", imageCacheControl)
	if res.Hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	http.ServeFile(w, r, res.FilePath)
}

// GetCover renders the album cover.
func (h *Handlers) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parseImageParams(r, defaultCoverWidth, defaultCoverHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.lib.Cover(r.Context(), id, thumbcache.CoverRequest{
		Width:   p.width,
		Height:  p.height,
		Fit:     p.fit,
		Format:  p.format,
		Quality: p.quality,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveArtifact(w, r, res)
}

// GetThumbnail renders one entry of an album. album_id, entry_path, w and h
// are required.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.ParseInt(q.Get("album_id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, r, invalid("album_id is required"))
		return
	}
	if q.Get("w") == "" || q.Get("h") == "" {
		writeError(w, r, invalid("w and h are required"))
		return
	}
	p, err := parseImageParams(r, 0, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.lib.Thumbnail(r.Context(), library.ThumbnailRequest{
		AlbumID: id,
		Entry:   q.Get("entry_path"),
		Width:   p.width,
		Height:  p.height,
		Fit:     p.fit,
		Format:  p.format,
		Quality: p.quality,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveArtifact(w, r, res)
}

// SetCover changes the album cover from a multipart form with fields type
// (default, internal or external), entry_path and file.
func (h *Handlers) SetCover(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, library.MaxCoverUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, r, invalid("malformed cover form: %v", err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	change := library.CoverChange{
		Type:  r.FormValue("type"),
		Entry: r.FormValue("entry_path"),
	}
	if change.Type == library.CoverExternal {
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			writeError(w, r, invalid("read cover upload: %v", err))
			return
		default:
			defer func() { _ = file.Close() }()
			change.Filename = header.Filename
			change.Data = file
		}
	}

	res, err := h.lib.SetCover(r.Context(), id, change)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// CropRequest is the body of POST /api/albums/{id}/cover/crop. All four
// fields are required.
type CropRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	W *float64 `json:"w"`
	H *float64 `json:"h"`
}

// SetCrop stores the normalized crop rectangle of the album cover.
func (h *Handlers) SetCrop(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CropRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	for name, v := range map[string]*float64{"x": req.X, "y": req.Y, "w": req.W, "h": req.H} {
		if v == nil {
			writeError(w, r, invalid("missing %s", name))
			return
		}
	}

	crop := database.Crop{X: *req.X, Y: *req.Y, W: *req.W, H: *req.H}
	if err := h.lib.SetCrop(r.Context(), id, crop); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
