package handlers

import (
	"net/http"

	"album-viewer/internal/library"
)

// ScanRequest is the body of POST /api/albums/scan.
type ScanRequest struct {
	Paths   []string `json:"paths"`
	Options struct {
		Folder struct {
			Recursive bool `json:"recursive"`
		} `json:"folder"`
	} `json:"options"`
}

// ScanAlbums registers the albums found under the requested paths.
func (h *Handlers) ScanAlbums(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, r, invalid("paths is required and must be a non-empty list"))
		return
	}

	res, err := h.lib.Scan(r.Context(), req.Paths, req.Options.Folder.Recursive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// RefreshAlbums removes albums whose path no longer exists.
func (h *Handlers) RefreshAlbums(w http.ResponseWriter, r *http.Request) {
	res, err := h.lib.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ListAlbums serves the page, children and tree listing scopes.
func (h *Handlers) ListAlbums(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page", 24)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.lib.List(r.Context(), library.ListOptions{
		Scope:      q.Get("scope"),
		Page:       page,
		PerPage:    perPage,
		SortBy:     q.Get("sort_by"),
		Order:      q.Get("order"),
		Keyword:    q.Get("keyword"),
		ParentPath: q.Get("parent_path"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetAlbumByPath looks an album up by its filesystem path.
func (h *Handlers) GetAlbumByPath(w http.ResponseWriter, r *http.Request) {
	a, err := h.lib.GetByPath(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handlers) GetAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.lib.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteAlbum removes an album, and for folders every album below it.
func (h *Handlers) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.lib.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ListEntries pages through the images of an album.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page", library.DefaultEntriesPerPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.lib.Entries(r.Context(), id, page, perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// BrowseAlbum lists one directory of a folder album.
func (h *Handlers) BrowseAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := albumID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.lib.Browse(r.Context(), id, r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
