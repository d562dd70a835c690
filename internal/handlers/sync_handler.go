package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/homeservices/mediasync/internal/models"
	"github.com/homeservices/mediasync/internal/observability"
	"github.com/homeservices/mediasync/internal/repository"
	"github.com/homeservices/mediasync/internal/services"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// SyncRunner executes one media sync
type SyncRunner interface {
	Run(ctx context.Context) (*models.SyncResult, error)
}

// SyncHandler handles the media sync trigger and run history endpoints
type SyncHandler struct {
	runner SyncRunner
	runs   repository.SyncRunRepo
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runner SyncRunner, runs repository.SyncRunRepo) *SyncHandler {
	return &SyncHandler{runner: runner, runs: runs}
}

// TriggerSync runs the Drive image sync and returns its aggregate result
// @Summary Trigger Drive image sync
// @Description Copies new images from the Drive root folder into the object store and catalog
// @Tags sync
// @Produce json
// @Success 200 {object} models.SyncResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 405 {object} models.ErrorResponse
// @Failure 500 {object} models.SyncFailureResponse
// @Security ServiceRoleAuth
// @Router /api/sync/drive [post]
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// A dropped connection must not abandon a run half way; the run deadline bounds it instead.
	result, err := h.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, services.ErrLedgerUnavailable) || result == nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusInternalServerError, models.SyncFailureResponse{
			Error:      err.Error(),
			SyncResult: result,
		})
	}
}

// ListRuns returns the most recent sync runs
// @Summary List sync runs
// @Tags sync
// @Produce json
// @Param limit query int false "Number of runs (default 20, max 100)"
// @Success 200 {object} models.SyncRunListResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ServiceRoleAuth
// @Router /api/sync/runs [get]
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultRunListLimit, maxRunListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		observability.WithContext(r.Context()).Errorf("Error listing sync runs: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, models.SyncRunListResponse{Runs: runs, Limit: limit})
}

// GetRun returns one sync run
// @Summary Get sync run
// @Tags sync
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} models.SyncRun
// @Failure 404 {object} models.ErrorResponse
// @Security ServiceRoleAuth
// @Router /api/sync/runs/{id} [get]
func (h *SyncHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		observability.WithContext(r.Context()).Errorf("Error getting sync run %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, models.ErrRunNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
