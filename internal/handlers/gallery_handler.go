package handlers

import (
	"net/http"
	"strings"

	"github.com/homeservices/mediasync/internal/models"
	"github.com/homeservices/mediasync/internal/observability"
	"github.com/homeservices/mediasync/internal/repository"
)

const (
	defaultGalleryLimit = 100
	maxGalleryLimit     = 500
)

// GalleryHandler serves the public read side of the catalog
type GalleryHandler struct {
	images repository.GalleryImageRepo
}

// NewGalleryHandler creates a new GalleryHandler
func NewGalleryHandler(images repository.GalleryImageRepo) *GalleryHandler {
	return &GalleryHandler{images: images}
}

// ListImages returns cataloged images, newest first, optionally for one category
// @Summary List gallery images
// @Tags gallery
// @Produce json
// @Param category query string false "Category slug"
// @Param limit query int false "Number of images (default 100, max 500)"
// @Success 200 {object} models.GalleryListResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/gallery [get]
func (h *GalleryHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultGalleryLimit, maxGalleryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	images, err := h.images.ListByCategory(r.Context(), category, limit)
	if err != nil {
		observability.WithContext(r.Context()).Errorf("Error listing gallery images: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, models.GalleryListResponse{
		Images:   images,
		Category: category,
		Count:    len(images),
	})
}
