package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/medigen/catalyst/internal/images"
	"github.com/medigen/catalyst/internal/models"
	"github.com/medigen/catalyst/internal/session"
)

// Multipart data above this size is buffered to disk
const maxMemory = 32 << 20

func (h *Handler) HandleUploadPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "upload", "Upload & Analyze Medical Images", "/upload", h.sessionState(r), nil)
}

// HandleUpload replaces the session's batch with the posted files and the
// image at image_url, if given.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	entry := h.currentSession(w, r)

	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var action session.Upload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			img, err := readUpload(header)
			if err != nil {
				action.Rejected = append(action.Rejected, models.ItemError{Filename: header.Filename, Err: err.Error()})
				continue
			}
			action.Images = append(action.Images, img)
		}
	}

	if imageURL := strings.TrimSpace(r.FormValue("image_url")); imageURL != "" {
		img, err := h.fetch(r, imageURL)
		if err != nil {
			action.Rejected = append(action.Rejected, models.ItemError{Filename: imageURL, Err: err.Error()})
		} else {
			action.Images = append(action.Images, img)
		}
	}

	state := h.dispatch(r, entry, action)
	h.render(w, "upload", "Upload & Analyze Medical Images", "/upload", state, state.Notices)
}

func (h *Handler) fetch(r *http.Request, imageURL string) (models.Image, error) {
	if h.fetcher == nil {
		return models.Image{}, errors.New("image URLs are not supported")
	}
	return h.fetcher.Fetch(r.Context(), imageURL)
}

func readUpload(header *multipart.FileHeader) (models.Image, error) {
	if header.Size > images.MaxImageSize {
		return models.Image{}, fmt.Errorf("file too large (max %d MB)", images.MaxImageSize>>20)
	}

	file, err := header.Open()
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxImageSize+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(data) > images.MaxImageSize {
		return models.Image{}, fmt.Errorf("file too large (max %d MB)", images.MaxImageSize>>20)
	}

	slog.Debug("Upload received", "image", header.Filename, "bytes", len(data))
	return models.Image{
		Filename: filepath.Base(header.Filename),
		Data:     data,
	}, nil
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	entry := h.currentSession(w, r)
	state := h.dispatch(r, entry, session.Analyze{Filename: r.FormValue("image")})
	h.render(w, "upload", "Upload & Analyze Medical Images", "/upload", state, state.Notices)
}

// HandleExport renders a fresh report for an analyzed image
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	entry := h.currentSession(w, r)
	state := h.dispatch(r, entry, session.Export{Filename: r.FormValue("image")})
	h.render(w, "upload", "Upload & Analyze Medical Images", "/upload", state, state.Notices)
}

func (h *Handler) HandleClearAnalyses(w http.ResponseWriter, r *http.Request) {
	entry := h.currentSession(w, r)
	state := h.dispatch(r, entry, session.ClearAnalyses{})
	h.render(w, "upload", "Upload & Analyze Medical Images", "/upload", state, state.Notices)
}
