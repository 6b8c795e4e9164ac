package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aniZ2/soledgic-sub004/internal/middleware"
	"github.com/aniZ2/soledgic-sub004/internal/services"
)

type CheckoutHandler struct {
	checkout  *services.CheckoutService
	validator *services.ValidationHelper
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:  checkout,
		validator: services.NewValidationHelper(),
	}
}

// CreateSession opens a checkout session
// @Summary Create Checkout Session
// @Description Open a pending session with a one-time state token
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateSessionRequest true "Session"
// @Success 201 {object} models.CheckoutSession
// @Failure 409 {object} services.ErrorResponse
// @Router /checkout/sessions [post]
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	session, err := h.checkout.CreateSession(middleware.LedgerID(r.Context()), req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"session": session,
	})
}

// StartCollecting moves a pending session to collecting
// @Summary Start Collecting
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param request body object{state_token=string} true "State token"
// @Success 200 {object} models.CheckoutSession
// @Failure 409 {object} services.ErrorResponse
// @Router /checkout/sessions/{id}/collect [post]
func (h *CheckoutHandler) StartCollecting(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", sessionID); err != nil {
		sendServiceError(w, err)
		return
	}

	var req struct {
		StateToken string `json:"state_token" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	session, err := h.checkout.StartCollecting(middleware.LedgerID(r.Context()), sessionID, req.StateToken)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": session,
	})
}

// ClaimSession takes the single charging claim on a session
// @Summary Claim Checkout Session
// @Description Atomically move the session to charging; concurrent claimers lose
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param request body object{state_token=string} true "State token"
// @Success 200 {object} models.CheckoutSession
// @Failure 409 {object} services.ErrorResponse
// @Router /checkout/sessions/{id}/claim [post]
func (h *CheckoutHandler) ClaimSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", sessionID); err != nil {
		sendServiceError(w, err)
		return
	}

	var req struct {
		StateToken string `json:"state_token" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	session, err := h.checkout.ClaimSession(middleware.LedgerID(r.Context()), sessionID, req.StateToken)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": session,
	})
}

// CompleteSession settles a charged session against the ledger
// @Summary Complete Checkout Session
// @Description Record the executed charge. If posting fails the session parks in charged_pending_ledger and the response is 202.
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param request body object{charge_id=string} true "Processor charge id"
// @Success 200 {object} services.CompleteResult
// @Success 202 {object} services.CompleteResult
// @Failure 409 {object} services.ErrorResponse
// @Router /checkout/sessions/{id}/complete [post]
func (h *CheckoutHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", sessionID); err != nil {
		sendServiceError(w, err)
		return
	}

	var req struct {
		ChargeID string `json:"charge_id" validate:"required,max=255"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.checkout.CompleteSession(r.Context(), middleware.LedgerID(r.Context()), sessionID, req.ChargeID)
	sendCompleteResult(w, result, err)
}

// RetrySettlement re-runs ledger posting for a parked session
// @Summary Retry Settlement
// @Description Retry posting for a session stuck in charged_pending_ledger
// @Tags Checkout
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} services.CompleteResult
// @Success 202 {object} services.CompleteResult
// @Failure 409 {object} services.ErrorResponse
// @Router /checkout/sessions/{id}/retry [post]
func (h *CheckoutHandler) RetrySettlement(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", sessionID); err != nil {
		sendServiceError(w, err)
		return
	}

	result, err := h.checkout.RetrySettlement(r.Context(), middleware.LedgerID(r.Context()), sessionID)
	sendCompleteResult(w, result, err)
}

// GetSession fetches one checkout session
// @Summary Get Checkout Session
// @Tags Checkout
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} models.CheckoutSession
// @Failure 404 {object} services.ErrorResponse
// @Router /checkout/sessions/{id} [get]
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", sessionID); err != nil {
		sendServiceError(w, err)
		return
	}

	session, err := h.checkout.GetSession(middleware.LedgerID(r.Context()), sessionID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": session,
	})
}

// ExpireStale sweeps expired sessions
// @Summary Expire Stale Sessions
// @Description Expire pending and collecting sessions past their deadline
// @Tags Checkout
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{expired=int64}
// @Router /checkout/sessions/expire [post]
func (h *CheckoutHandler) ExpireStale(w http.ResponseWriter, r *http.Request) {
	expired, err := h.checkout.ExpireStale(middleware.LedgerID(r.Context()))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"expired": expired,
	})
}

// sendCompleteResult distinguishes a settled session from one parked in
// charged_pending_ledger, which is accepted but not yet posted.
func sendCompleteResult(w http.ResponseWriter, result *services.CompleteResult, err error) {
	if err != nil {
		sendServiceError(w, err)
		return
	}
	status := http.StatusOK
	if result.Pending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]any{
		"success": !result.Pending,
		"result":  result,
	})
}
