package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkpage/server/internal/gate"
	"github.com/linkpage/server/internal/middleware"
	"github.com/linkpage/server/internal/model"
)

// AccessHandler handles the gated-access endpoints
type AccessHandler struct {
	access          *gate.AccessService
	verifyIPLimiter *middleware.RateLimiter
	logger          *zap.Logger
}

// NewAccessHandler creates a new access handler. The verify endpoint gets an
// IP limiter (20 per 10 min) on top of the per-page lockout.
func NewAccessHandler(access *gate.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		access:          access,
		verifyIPLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
		logger:          logger,
	}
}

// verifyPinRequest is the request body for POST /access/verify_pin
type verifyPinRequest struct {
	ProfileID string `json:"profile_id"`
	PageID    string `json:"page_id,omitempty"`
	Pin       string `json:"pin"`
}

// verifyPinResponse is the JSON response for verify_pin
type verifyPinResponse struct {
	Outcome           gate.VerifyOutcome `json:"outcome"`
	PageID            string             `json:"page_id,omitempty"`
	RemainingAttempts *int               `json:"remaining_attempts,omitempty"`
	DownloadToken     string             `json:"download_token,omitempty"`
	UnlockToken       string             `json:"unlock_token,omitempty"`
	Content           *model.PageContent `json:"content,omitempty"`
}

// HandleVerifyPin handles POST /access/verify_pin
func (h *AccessHandler) HandleVerifyPin(w http.ResponseWriter, r *http.Request) {
	var req verifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profileID, err := uuid.Parse(strings.TrimSpace(req.ProfileID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	var pageID *uuid.UUID
	if s := strings.TrimSpace(req.PageID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			// An unparseable page id is the same as an unknown one
			respondJSON(w, http.StatusOK, verifyPinResponse{Outcome: gate.OutcomeNotFound})
			return
		}
		pageID = &id
	}

	if !h.verifyIPLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	result, err := h.access.VerifyPin(r.Context(), profileID, pageID, req.Pin)
	if err != nil {
		h.logger.Error("verify pin failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	resp := verifyPinResponse{Outcome: result.Outcome}
	switch result.Outcome {
	case gate.OutcomeSuccess:
		resp.PageID = result.PageID.String()
		resp.DownloadToken = result.DownloadToken
		resp.UnlockToken = result.UnlockToken
		resp.Content = result.Content
	case gate.OutcomeWrongPin:
		remaining := result.RemainingAttempts
		resp.RemainingAttempts = &remaining
	}
	respondJSON(w, http.StatusOK, resp)
}

// rememberedRequest is the request body for POST /access/remembered
type rememberedRequest struct {
	ProfileID   string   `json:"profile_id"`
	TrustTokens []string `json:"trust_tokens"`
}

// rememberedResponse lists the pages the presented credentials still unlock
type rememberedResponse struct {
	RememberedPages []rememberedPage `json:"remembered_pages"`
}

type rememberedPage struct {
	PageID string `json:"page_id"`
}

// HandleCheckRemembered handles POST /access/remembered
func (h *AccessHandler) HandleCheckRemembered(w http.ResponseWriter, r *http.Request) {
	var req rememberedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profileID, err := uuid.Parse(strings.TrimSpace(req.ProfileID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	pages := h.access.CheckRemembered(r.Context(), profileID, req.TrustTokens)
	resp := rememberedResponse{RememberedPages: make([]rememberedPage, 0, len(pages))}
	for _, id := range pages {
		resp.RememberedPages = append(resp.RememberedPages, rememberedPage{PageID: id.String()})
	}
	respondJSON(w, http.StatusOK, resp)
}

// rememberRequest is the request body for POST /access/remember
type rememberRequest struct {
	ProfileID   string `json:"profile_id"`
	PageID      string `json:"page_id"`
	UnlockToken string `json:"unlock_token"`
}

// rememberResponse returns the new device trust credential
type rememberResponse struct {
	TrustToken string    `json:"trust_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HandleRememberDevice handles POST /access/remember
func (h *AccessHandler) HandleRememberDevice(w http.ResponseWriter, r *http.Request) {
	var req rememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profileID, err := uuid.Parse(strings.TrimSpace(req.ProfileID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "profile_id is required")
		return
	}
	pageID, err := uuid.Parse(strings.TrimSpace(req.PageID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "page_id is required")
		return
	}
	if strings.TrimSpace(req.UnlockToken) == "" {
		respondWithError(w, http.StatusBadRequest, "unlock_token is required")
		return
	}

	token, expiresAt, err := h.access.RememberDevice(r.Context(), profileID, pageID, req.UnlockToken)
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrRememberNotAllowed):
			respondWithError(w, http.StatusForbidden, "remember_not_allowed")
		case errors.Is(err, gate.ErrUnlockProofInvalid):
			respondWithError(w, http.StatusUnauthorized, "invalid or expired unlock token")
		case errors.Is(err, gate.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "not_found")
		default:
			h.logger.Error("remember device failed", zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "remember failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, rememberResponse{TrustToken: token, ExpiresAt: expiresAt})
}

// forgetRequest is the request body for POST /access/forget
type forgetRequest struct {
	TrustToken string `json:"trust_token"`
}

// HandleForgetDevice handles POST /access/forget. Always succeeds for
// well-formed requests; revoking an unknown token is a no-op.
func (h *AccessHandler) HandleForgetDevice(w http.ResponseWriter, r *http.Request) {
	var req forgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TrustToken) == "" {
		respondWithError(w, http.StatusBadRequest, "trust_token is required")
		return
	}
	if err := h.access.ForgetDevice(r.Context(), req.TrustToken); err != nil {
		h.logger.Error("forget device failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "forget failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "forgotten"})
}

// downloadRequest is the request body for POST /access/download
type downloadRequest struct {
	ProfileID string `json:"profile_id"`
	PageID    string `json:"page_id"`
	Token     string `json:"token"`
}

// HandleDownload handles POST /access/download. On success it streams the
// protected vCard; every token failure is a bare 403 "denied".
func (h *AccessHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profileID, err := uuid.Parse(strings.TrimSpace(req.ProfileID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "profile_id is required")
		return
	}
	pageID, err := uuid.Parse(strings.TrimSpace(req.PageID))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "page_id is required")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		respondWithError(w, http.StatusForbidden, "denied")
		return
	}

	vcard, err := h.access.RedeemDownloadToken(r.Context(), profileID, pageID, req.Token)
	if err != nil {
		if errors.Is(err, gate.ErrDenied) {
			respondWithError(w, http.StatusForbidden, "denied")
			return
		}
		h.logger.Error("download failed after redemption", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "download failed")
		return
	}

	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contact.vcf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(vcard)
}
