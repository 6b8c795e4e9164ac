package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aniZ2/soledgic-sub004/internal/middleware"
	"github.com/aniZ2/soledgic-sub004/internal/services"
)

type InvoiceHandler struct {
	invoices  *services.InvoiceService
	validator *services.ValidationHelper
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoices:  invoices,
		validator: services.NewValidationHelper(),
	}
}

// CreateInvoice stores a draft invoice
// @Summary Create Invoice
// @Description Create a draft invoice with line items; no ledger entries yet
// @Tags Invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} models.Invoice
// @Failure 400 {object} services.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req services.CreateInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	invoice, err := h.invoices.CreateInvoice(middleware.LedgerID(r.Context()), req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"invoice": invoice,
	})
}

// SendInvoice issues a draft and posts the receivable
// @Summary Send Invoice
// @Description Assign the invoice number and post debit receivable, credit revenue
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice id"
// @Success 200 {object} services.SendResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", invoiceID); err != nil {
		sendServiceError(w, err)
		return
	}

	result, err := h.invoices.SendInvoice(r.Context(), middleware.LedgerID(r.Context()), invoiceID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

// RecordPayment applies a customer payment to an invoice
// @Summary Record Invoice Payment
// @Tags Invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice id"
// @Param request body services.InvoicePaymentRequest true "Payment"
// @Success 201 {object} services.PostingResult
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", invoiceID); err != nil {
		sendServiceError(w, err)
		return
	}

	var req services.InvoicePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.invoices.RecordPayment(r.Context(), middleware.LedgerID(r.Context()), invoiceID, req)
	sendPostingResult(w, result, err)
}

// VoidInvoice cancels an invoice, reversing posted entries if needed
// @Summary Void Invoice
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice id"
// @Success 200 {object} models.Invoice
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /invoices/{id}/void [post]
func (h *InvoiceHandler) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", invoiceID); err != nil {
		sendServiceError(w, err)
		return
	}

	invoice, err := h.invoices.VoidInvoice(r.Context(), middleware.LedgerID(r.Context()), invoiceID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"invoice": invoice,
	})
}

// GetInvoice fetches one invoice with its line items
// @Summary Get Invoice
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice id"
// @Success 200 {object} models.Invoice
// @Failure 404 {object} services.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")
	if err := services.ValidateUUID("id", invoiceID); err != nil {
		sendServiceError(w, err)
		return
	}

	invoice, err := h.invoices.GetInvoice(middleware.LedgerID(r.Context()), invoiceID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"invoice": invoice,
	})
}
