package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkpage/server/internal/gate"
	"github.com/linkpage/server/internal/model"
)

// PageHandler handles owner-side protected page management. Owner
// authentication is enforced upstream of this service.
type PageHandler struct {
	manager *gate.PageManager
	logger  *zap.Logger
}

// NewPageHandler creates a new page management handler
func NewPageHandler(manager *gate.PageManager, logger *zap.Logger) *PageHandler {
	return &PageHandler{manager: manager, logger: logger}
}

// createPageRequest is the request body for POST /pages
type createPageRequest struct {
	ProfileID     string `json:"profile_id"`
	Pin           string `json:"pin"`
	Visibility    string `json:"visibility,omitempty"`
	AllowRemember *bool  `json:"allow_remember,omitempty"`
}

// pageResponse describes a protected page to its owner. The PIN hash is never
// included.
type pageResponse struct {
	ID            string `json:"id"`
	ProfileID     string `json:"profile_id"`
	Visibility    string `json:"visibility"`
	AllowRemember bool   `json:"allow_remember"`
}

// HandleCreatePage handles POST /pages
func (h *PageHandler) HandleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profileID, err := uuid.Parse(strings.TrimSpace(req.ProfileID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	visibility := model.VisibilityMode(req.Visibility)
	if req.Visibility == "" {
		visibility = model.VisibilityHidden
	}
	allowRemember := true
	if req.AllowRemember != nil {
		allowRemember = *req.AllowRemember
	}

	page, err := h.manager.CreatePage(r.Context(), profileID, req.Pin, visibility, allowRemember)
	if err != nil {
		if errors.Is(err, gate.ErrInvalidFormat) {
			respondWithError(w, http.StatusBadRequest, "pin must be 4-8 digits")
			return
		}
		h.logger.Error("create page failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "create failed")
		return
	}

	respondJSON(w, http.StatusCreated, pageResponse{
		ID:            page.ID.String(),
		ProfileID:     page.ProfileID.String(),
		Visibility:    string(page.VisibilityMode),
		AllowRemember: page.AllowRemember,
	})
}

// changePinRequest is the request body for POST /pages/{pageID}/pin
type changePinRequest struct {
	Pin string `json:"pin"`
}

// HandleChangePin handles POST /pages/{pageID}/pin
func (h *PageHandler) HandleChangePin(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageIDParam(w, r)
	if !ok {
		return
	}
	var req changePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.manager.ChangePin(r.Context(), pageID, req.Pin)
	if err != nil {
		if errors.Is(err, gate.ErrInvalidFormat) {
			respondWithError(w, http.StatusBadRequest, "pin must be 4-8 digits")
			return
		}
		h.respondManageError(w, err, "change pin")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "pin updated"})
}

// settingsRequest is the request body for PATCH /pages/{pageID}
type settingsRequest struct {
	AllowRemember *bool   `json:"allow_remember,omitempty"`
	Visibility    *string `json:"visibility,omitempty"`
}

// HandleUpdateSettings handles PATCH /pages/{pageID}
func (h *PageHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageIDParam(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AllowRemember == nil && req.Visibility == nil {
		respondWithError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.AllowRemember != nil {
		if err := h.manager.SetAllowRemember(r.Context(), pageID, *req.AllowRemember); err != nil {
			h.respondManageError(w, err, "set allow_remember")
			return
		}
	}
	if req.Visibility != nil {
		err := h.manager.SetVisibility(r.Context(), pageID, model.VisibilityMode(*req.Visibility))
		if err != nil {
			if errors.Is(err, gate.ErrInvalidVisibility) {
				respondWithError(w, http.StatusBadRequest, "visibility must be hidden or visible")
				return
			}
			h.respondManageError(w, err, "set visibility")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

// HandleDeactivatePage handles POST /pages/{pageID}/deactivate
func (h *PageHandler) HandleDeactivatePage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageIDParam(w, r)
	if !ok {
		return
	}
	if err := h.manager.DeactivatePage(r.Context(), pageID); err != nil {
		h.respondManageError(w, err, "deactivate page")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deactivated"})
}

// HandleDeletePage handles DELETE /pages/{pageID}
func (h *PageHandler) HandleDeletePage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageIDParam(w, r)
	if !ok {
		return
	}
	if err := h.manager.DeletePage(r.Context(), pageID); err != nil {
		h.respondManageError(w, err, "delete page")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (h *PageHandler) pageIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pageID, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid page id")
		return uuid.Nil, false
	}
	return pageID, true
}

func (h *PageHandler) respondManageError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, gate.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "not_found")
		return
	}
	h.logger.Error(op+" failed", zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, op+" failed")
}
