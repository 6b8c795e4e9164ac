package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aniZ2/soledgic-sub004/internal/middleware"
	"github.com/aniZ2/soledgic-sub004/internal/services"
)

type PostingHandler struct {
	posting   *services.PostingService
	reversals *services.ReversalService
	validator *services.ValidationHelper
}

func NewPostingHandler(posting *services.PostingService, reversals *services.ReversalService) *PostingHandler {
	return &PostingHandler{
		posting:   posting,
		reversals: reversals,
		validator: services.NewValidationHelper(),
	}
}

// sendPostingResult writes a posting outcome. A duplicate reference comes back
// as a conflict carrying the transaction that already holds the reference.
func sendPostingResult(w http.ResponseWriter, result *services.PostingResult, err error) {
	if err != nil {
		if result != nil && result.Duplicate {
			writeJSON(w, http.StatusConflict, map[string]any{
				"success":   false,
				"duplicate": true,
				"result":    result,
			})
			return
		}
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"result":  result,
	})
}

// RecordSale posts a sale with its revenue split
// @Summary Record Sale
// @Description Post a sale, splitting gross between platform revenue and the counterparty
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.SaleRequest true "Sale"
// @Success 201 {object} services.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 423 {object} services.ErrorResponse
// @Router /sales [post]
func (h *PostingHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req services.SaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.posting.RecordSale(r.Context(), middleware.LedgerID(r.Context()), req)
	sendPostingResult(w, result, err)
}

// RecordRefund posts a partial or full refund of a prior sale
// @Summary Record Refund
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RefundRequest true "Refund"
// @Success 201 {object} services.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /refunds [post]
func (h *PostingHandler) RecordRefund(w http.ResponseWriter, r *http.Request) {
	var req services.RefundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.posting.RecordRefund(r.Context(), middleware.LedgerID(r.Context()), req)
	sendPostingResult(w, result, err)
}

// RecordBill posts a vendor bill
// @Summary Record Bill
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.BillRequest true "Bill"
// @Success 201 {object} services.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Router /bills [post]
func (h *PostingHandler) RecordBill(w http.ResponseWriter, r *http.Request) {
	var req services.BillRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.posting.RecordBill(r.Context(), middleware.LedgerID(r.Context()), req)
	sendPostingResult(w, result, err)
}

// RecordBillPayment settles an outstanding bill
// @Summary Record Bill Payment
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.BillPaymentRequest true "Bill payment"
// @Success 201 {object} services.PostingResult
// @Failure 422 {object} services.ErrorResponse
// @Router /bill-payments [post]
func (h *PostingHandler) RecordBillPayment(w http.ResponseWriter, r *http.Request) {
	var req services.BillPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.posting.RecordBillPayment(r.Context(), middleware.LedgerID(r.Context()), req)
	sendPostingResult(w, result, err)
}

// RecordPayout pays a counterparty from their accrued balance
// @Summary Record Payout
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.PayoutRequest true "Payout"
// @Success 201 {object} services.PostingResult
// @Failure 422 {object} services.ErrorResponse
// @Router /payouts [post]
func (h *PostingHandler) RecordPayout(w http.ResponseWriter, r *http.Request) {
	var req services.PayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.posting.RecordPayout(r.Context(), middleware.LedgerID(r.Context()), req)
	sendPostingResult(w, result, err)
}

// RecordAdjustment posts a manual correcting entry
// @Summary Record Adjustment
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AdjustmentRequest true "Adjustment"
// @Success 201 {object} services.PostingResult
// @Failure 400 {object} services.ErrorResponse
// @Router /adjustments [post]
func (h *PostingHandler) RecordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req services.AdjustmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.posting.RecordAdjustment(r.Context(), middleware.LedgerID(r.Context()), req)
	sendPostingResult(w, result, err)
}

// ReverseTransaction mirrors a completed transaction in full
// @Summary Reverse Transaction
// @Description Post the exact mirror of a completed transaction
// @Tags Postings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id"
// @Param request body services.ReversalRequest true "Reversal"
// @Success 201 {object} services.PostingResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transactions/{id}/reverse [post]
func (h *PostingHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", transactionID); err != nil {
		sendServiceError(w, err)
		return
	}

	var req services.ReversalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.reversals.ReverseTransaction(r.Context(), middleware.LedgerID(r.Context()), transactionID, req)
	sendPostingResult(w, result, err)
}

// GetTransaction fetches one transaction with its entries
// @Summary Get Transaction
// @Tags Postings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction id"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [get]
func (h *PostingHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", transactionID); err != nil {
		sendServiceError(w, err)
		return
	}

	transaction, entries, err := h.posting.GetTransaction(middleware.LedgerID(r.Context()), transactionID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"transaction": transaction,
		"entries":     entries,
	})
}

// ListTransactions lists the ledger's transactions, newest first
// @Summary List Transactions
// @Tags Postings
// @Produce json
// @Security BearerAuth
// @Param type query string false "Filter by transaction type"
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size, default 50, max 100"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (h *PostingHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			services.SendErrorResponse(w, "limit must be between 1 and 100", http.StatusBadRequest, nil)
			return
		}
		limit = parsed
	}

	transactions, err := h.posting.ListTransactions(
		middleware.LedgerID(r.Context()),
		r.URL.Query().Get("type"),
		r.URL.Query().Get("status"),
		limit,
	)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"transactions": transactions,
	})
}
