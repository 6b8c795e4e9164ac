package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aniZ2/soledgic-sub004/internal/middleware"
	"github.com/aniZ2/soledgic-sub004/internal/models"
	"github.com/aniZ2/soledgic-sub004/internal/services"
)

type LedgerHandler struct {
	ledgers   *services.LedgerService
	accounts  *services.AccountStore
	reports   *services.ReportService
	validator *services.ValidationHelper
}

func NewLedgerHandler(ledgers *services.LedgerService, accounts *services.AccountStore, reports *services.ReportService) *LedgerHandler {
	return &LedgerHandler{
		ledgers:   ledgers,
		accounts:  accounts,
		reports:   reports,
		validator: services.NewValidationHelper(),
	}
}

// CreateLedger provisions a new set of books
// @Summary Create Ledger
// @Description Create a ledger with its baseline accounts
// @Tags Ledgers
// @Accept json
// @Produce json
// @Param request body services.CreateLedgerRequest true "Ledger definition"
// @Success 201 {object} models.Ledger
// @Failure 400 {object} services.ErrorResponse
// @Router /ledgers [post]
func (h *LedgerHandler) CreateLedger(w http.ResponseWriter, r *http.Request) {
	var req services.CreateLedgerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ledger, err := h.ledgers.CreateLedger(req)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"ledger":  ledger,
	})
}

// GetLedger returns the authenticated ledger
// @Summary Get Ledger
// @Tags Ledgers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Ledger
// @Failure 404 {object} services.ErrorResponse
// @Router /ledger [get]
func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ledgers.GetLedger(middleware.LedgerID(r.Context()))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ledger":  ledger,
	})
}

// SetStatus suspends or reactivates the ledger
// @Summary Set Ledger Status
// @Description Suspend or reactivate posting on the ledger
// @Tags Ledgers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{status=string} true "active or suspended"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Router /ledger/status [put]
func (h *LedgerHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status" validate:"required,oneof=active suspended"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.ledgers.SetStatus(middleware.LedgerID(r.Context()), models.LedgerStatus(req.Status)); err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  req.Status,
	})
}

// CreateCounterparty registers a counterparty on the ledger
// @Summary Create Counterparty
// @Tags Counterparties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateCounterpartyRequest true "Counterparty"
// @Success 201 {object} models.Counterparty
// @Failure 400 {object} services.ErrorResponse
// @Router /counterparties [post]
func (h *LedgerHandler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCounterpartyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	cp, err := h.ledgers.CreateCounterparty(middleware.LedgerID(r.Context()), req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"counterparty": cp,
	})
}

// CreateProduct registers a product split override
// @Summary Create Product
// @Tags Counterparties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} services.ErrorResponse
// @Router /products [post]
func (h *LedgerHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req services.CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	product, err := h.ledgers.CreateProduct(middleware.LedgerID(r.Context()), req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"product": product,
	})
}

// ListAccounts lists the ledger's accounts with balances
// @Summary List Accounts
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(middleware.LedgerID(r.Context()))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": accounts,
	})
}

// GetBalance returns a single account's balance
// @Summary Get Account Balance
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param type path string true "Account type"
// @Param entity_id query string false "Entity id for per-entity accounts"
// @Success 200 {object} object{balance=int64}
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{type}/balance [get]
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountType := models.AccountType(chi.URLParam(r, "type"))
	if !accountType.Valid() {
		services.SendErrorResponse(w, "Unknown account type", http.StatusBadRequest, nil)
		return
	}

	balance, err := h.accounts.GetBalance(middleware.LedgerID(r.Context()), accountType, r.URL.Query().Get("entity_id"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"type":    accountType,
		"balance": balance,
	})
}

// TrialBalance sums debits and credits across the ledger
// @Summary Trial Balance
// @Description Verify that total debits equal total credits
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.TrialBalance
// @Failure 404 {object} services.ErrorResponse
// @Router /reports/trial-balance [get]
func (h *LedgerHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.TrialBalance(middleware.LedgerID(r.Context()))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}
