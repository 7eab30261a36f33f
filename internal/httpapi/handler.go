package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"streak-keeper/internal/model"
	"streak-keeper/internal/service"
	"streak-keeper/internal/streak"
)

// TrackerInterface is the slice of service.Tracker the API needs.
type TrackerInterface interface {
	Now() time.Time
	Categories() []model.Category
	Get(id uint) (model.Category, error)
	Complete(ctx context.Context, id uint) (model.Category, []streak.Event, error)
	Create(ctx context.Context, name string) (model.Category, error)
	Rename(ctx context.Context, id uint, name string) (model.Category, error)
	Delete(ctx context.Context, id uint) (model.Category, error)
	Stats() streak.Stats
	Milestones(id uint) ([]streak.Progress, error)
}

type APIHandler struct {
	logger  *slog.Logger
	tracker TrackerInterface
}

func NewAPIHandler(logger *slog.Logger, tracker TrackerInterface) *APIHandler {
	return &APIHandler{
		logger:  logger,
		tracker: tracker,
	}
}

// categoryView is a category plus the derived fields clients would otherwise recompute.
type categoryView struct {
	model.Category
	AchievedToday  bool   `json:"achievedToday"`
	ResetInSeconds *int64 `json:"resetInSeconds,omitempty"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type completeResponse struct {
	Category   categoryView `json:"category"`
	Milestones []int        `json:"milestones"`
}

func (h *APIHandler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	now := h.tracker.Now()
	categories := h.tracker.Categories()
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, newCategoryView(c, now))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": views})
}

func (h *APIHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.logger.Warn("Failed to decode create request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	category, err := h.tracker.Create(r.Context(), req.Name)
	if err != nil {
		h.fail(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"category": newCategoryView(category, h.tracker.Now())})
}

func (h *APIHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.logger.Warn("Failed to decode rename request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	category, err := h.tracker.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, "rename category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"category": newCategoryView(category, h.tracker.Now())})
}

func (h *APIHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	if _, err := h.tracker.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) CompleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	category, events, err := h.tracker.Complete(r.Context(), id)
	if err != nil {
		h.fail(w, "complete category", err)
		return
	}

	reached := []int{}
	for _, e := range events {
		if m, ok := e.(streak.MilestoneReached); ok {
			reached = append(reached, m.Days)
		}
	}
	writeJSON(w, http.StatusOK, completeResponse{
		Category:   newCategoryView(category, h.tracker.Now()),
		Milestones: reached,
	})
}

func (h *APIHandler) GetMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	progress, err := h.tracker.Milestones(id)
	if err != nil {
		h.fail(w, "get milestones", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"milestones": progress})
}

func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Stats())
}

func (h *APIHandler) categoryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		h.logger.Warn("Failed to get ID from path", "id", idStr)
		writeError(w, http.StatusBadRequest, "invalid category id")
		return 0, false
	}
	return uint(id), true
}

// fail maps service errors onto status codes.
func (h *APIHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, service.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name must not be empty")
	default:
		h.logger.Error("Failed to "+op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func newCategoryView(c model.Category, now time.Time) categoryView {
	view := categoryView{Category: c, AchievedToday: streak.AchievedToday(c, now)}
	if remaining, ok := streak.TimeUntilReset(c, now); ok {
		seconds := int64(remaining / time.Second)
		view.ResetInSeconds = &seconds
	}
	return view
}

func decodeBody(body io.Reader, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
