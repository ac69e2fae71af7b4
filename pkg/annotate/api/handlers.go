package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/image-annotate/pkg/annotate"
)

// UploadResponse is returned after a durable upload. Both statuses start
// pending; clients poll /status/{key} for progress.
type UploadResponse struct {
	Key              string          `json:"key"`
	DisplayName      string          `json:"display_name"`
	AnnotationStatus annotate.Status `json:"annotation_status"`
	ThumbnailStatus  annotate.Status `json:"thumbnail_status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.renderError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.renderError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	record, err := s.service.Upload(r.Context(), annotate.UploadRequest{
		FileName: header.Filename,
		Data:     file,
	})
	if err != nil {
		if errors.Is(err, annotate.ErrInvalidInput) {
			s.renderError(w, r, http.StatusBadRequest,
				fmt.Sprintf("unsupported file type, allowed types: %s", strings.Join(annotate.AllowedExtensions(), ", ")))
			return
		}
		s.logger.Error("upload failed", "request_id", middleware.GetReqID(r.Context()), "file", header.Filename, "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "upload failed")
		return
	}

	s.logger.Info("upload accepted", "request_id", middleware.GetReqID(r.Context()), "key", record.Key, "file", header.Filename)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{
		Key:              record.Key,
		DisplayName:      record.DisplayName,
		AnnotationStatus: record.AnnotationStatus,
		ThumbnailStatus:  record.ThumbnailStatus,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		s.renderError(w, r, http.StatusBadRequest, "key is required")
		return
	}

	view, err := s.service.GetStatus(r.Context(), key)
	if err != nil {
		if errors.Is(err, annotate.ErrRecordNotFound) {
			s.renderError(w, r, http.StatusNotFound, "record not found")
			return
		}
		s.logger.Error("status lookup failed", "request_id", middleware.GetReqID(r.Context()), "key", key, "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "status lookup failed")
		return
	}

	render.JSON(w, r, view)
}

// GalleryResponse wraps the gallery listing.
type GalleryResponse struct {
	Images []*annotate.GalleryImage `json:"images"`
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	images, err := s.service.ListGallery(r.Context())
	if err != nil {
		s.logger.Error("gallery listing failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "gallery listing failed")
		return
	}
	if images == nil {
		images = []*annotate.GalleryImage{}
	}
	render.JSON(w, r, GalleryResponse{Images: images})
}
