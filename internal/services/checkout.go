package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// CheckoutService tracks external payment attempts through their state
// machine. The charge itself is executed by the payment processor before the
// ledger sees anything; this service guarantees that exactly one callback
// wins the right to charge, and that a charge whose ledger write fails is
// never lost or reported as success.
type CheckoutService struct {
	db       *sql.DB
	posting  *PostingService
	audit    *AuditLogger
	webhooks *WebhookQueue
}

func NewCheckoutService(db *sql.DB, posting *PostingService, audit *AuditLogger, webhooks *WebhookQueue) *CheckoutService {
	return &CheckoutService{
		db:       db,
		posting:  posting,
		audit:    audit,
		webhooks: webhooks,
	}
}

// sessionTTL bounds how long an unclaimed session stays claimable.
const sessionTTL = 30 * time.Minute

type CreateSessionRequest struct {
	ReferenceID    string `json:"reference_id" validate:"required,max=255"`
	CounterpartyID string `json:"counterparty_id" validate:"required,uuid"`
	ProductID      string `json:"product_id" validate:"omitempty,uuid"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
}

// CreateSession opens a pending session with a fresh one-time state token.
func (s *CheckoutService) CreateSession(ledgerID string, req CreateSessionRequest) (*models.CheckoutSession, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ledger, err := loadLedgerTx(tx, ledgerID)
	if err != nil {
		return nil, err
	}

	session := &models.CheckoutSession{
		ID:             uuid.NewString(),
		LedgerID:       ledgerID,
		ReferenceID:    referenceID,
		CounterpartyID: req.CounterpartyID,
		ProductID:      req.ProductID,
		Amount:         req.Amount,
		Currency:       ledger.Currency,
		Status:         models.CheckoutPending,
		StateToken:     newStateToken(),
		ExpiresAt:      time.Now().Add(sessionTTL),
	}
	var productID any
	if session.ProductID != "" {
		productID = session.ProductID
	}
	_, err = tx.Exec(`
		INSERT INTO checkout_sessions (id, ledger_id, reference_id, counterparty_id, product_id, amount, currency, status, state_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID, ledgerID, referenceID, session.CounterpartyID, productID,
		session.Amount, session.Currency, session.Status, session.StateToken, session.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{TransactionID: referenceID, Status: "session_exists"}
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.Record(ledgerID, "checkout.created", "checkout_session", session.ID, "", referenceID, 201)
	return session, nil
}

// StartCollecting moves a fresh session into payment-detail collection.
// Conditional on the current status, so a stale or replayed call is a no-op
// conflict rather than a state rewind.
func (s *CheckoutService) StartCollecting(ledgerID, sessionID, stateToken string) (*models.CheckoutSession, error) {
	result, err := s.db.Exec(`
		UPDATE checkout_sessions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND ledger_id = $4 AND status = $5 AND state_token = $6 AND expires_at > $2`,
		models.CheckoutCollecting, time.Now(), sessionID, ledgerID,
		models.CheckoutPending, stateToken)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := s.GetSession(ledgerID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrClaimLost
	}
	return s.GetSession(ledgerID, sessionID)
}

// ClaimSession is the single-winner transition into charging. The check and
// the transition are one conditional UPDATE keyed on session id and the
// one-time state token; with two racing callbacks, exactly one sees a row
// affected. The loser must treat the lost claim as already handled and must
// not retry the charge.
func (s *CheckoutService) ClaimSession(ledgerID, sessionID, stateToken string) (*models.CheckoutSession, error) {
	result, err := s.db.Exec(`
		UPDATE checkout_sessions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND ledger_id = $4
		  AND status IN ($5, $6)
		  AND state_token = $7
		  AND expires_at > $2`,
		models.CheckoutCharging, time.Now(), sessionID, ledgerID,
		models.CheckoutPending, models.CheckoutCollecting, stateToken)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Either another callback won, the token is stale, or the session
		// expired. All are terminal for this attempt.
		if _, err := s.GetSession(ledgerID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrClaimLost
	}

	session, err := s.GetSession(ledgerID, sessionID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ledgerID, "checkout.claimed", "checkout_session", sessionID, "", "", 200)
	return session, nil
}

// CompleteResult reports where the session landed. Pending is true when the
// charge succeeded but the ledger write did not: the caller must surface
// "processing", not success, and retry settlement later.
type CompleteResult struct {
	Session *models.CheckoutSession `json:"session"`
	Posting *PostingResult          `json:"posting,omitempty"`
	Pending bool                    `json:"pending"`
}

// CompleteSession records the already-executed charge against the ledger.
// The charge id arrives as a known fact; no processor call happens here. If
// the sale posting fails, the session parks in charged_pending_ledger with
// the charge id saved, and RetrySettlement finishes the job idempotently.
func (s *CheckoutService) CompleteSession(ctx context.Context, ledgerID, sessionID, chargeID string) (*CompleteResult, error) {
	chargeID, err := NormalizeString("charge_id", chargeID)
	if err != nil {
		return nil, err
	}

	session, err := s.GetSession(ledgerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.CheckoutCharging && session.Status != models.CheckoutChargedNoPost {
		return nil, fmt.Errorf("session %s is %s, not awaiting settlement: %w", sessionID, session.Status, ErrClaimLost)
	}

	posting, err := s.posting.RecordSale(ctx, ledgerID, SaleRequest{
		ReferenceID:    session.ReferenceID,
		CounterpartyID: session.CounterpartyID,
		ProductID:      session.ProductID,
		Amount:         session.Amount,
		Description:    "Checkout session " + session.ID,
		Metadata:       models.Metadata{"charge_id": chargeID, "checkout_session_id": session.ID},
	})

	var dup *DuplicateError
	if err != nil && !errors.As(err, &dup) {
		// The money moved but the books did not. Park the session in a
		// recoverable state and tell the caller it is pending, not done.
		log.Printf("[CHECKOUT] Ledger write failed after charge %s on session %s: %v", chargeID, sessionID, err)
		if markErr := s.markChargedPendingLedger(ledgerID, sessionID, chargeID, err); markErr != nil {
			log.Printf("[CHECKOUT] Failed to park session %s: %v", sessionID, markErr)
		}
		session.Status = models.CheckoutChargedNoPost
		session.ChargeID = chargeID
		s.audit.Record(ledgerID, "checkout.charged_pending_ledger", "checkout_session", sessionID, "", chargeID, 202)
		return &CompleteResult{Session: session, Pending: true}, nil
	}

	// Posted now, or already posted by an earlier attempt: either way the
	// ledger holds exactly one transaction for this reference.
	_, err = s.db.Exec(`
		UPDATE checkout_sessions
		SET status = $1, charge_id = $2, failure_reason = '', updated_at = $3
		WHERE id = $4 AND ledger_id = $5`,
		models.CheckoutCompleted, chargeID, time.Now(), sessionID, ledgerID)
	if err != nil {
		return nil, err
	}
	session.Status = models.CheckoutCompleted
	session.ChargeID = chargeID

	s.audit.Record(ledgerID, "checkout.completed", "checkout_session", sessionID, "", chargeID, 200)
	s.webhooks.Enqueue(ctx, ledgerID, "checkout.completed", posting)
	return &CompleteResult{Session: session, Posting: posting}, nil
}

// RetrySettlement re-runs the ledger write for a session parked in
// charged_pending_ledger. The posting reuses the session's reference id, so
// a retry can never double-post the sale.
func (s *CheckoutService) RetrySettlement(ctx context.Context, ledgerID, sessionID string) (*CompleteResult, error) {
	session, err := s.GetSession(ledgerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.CheckoutChargedNoPost {
		return nil, fmt.Errorf("session %s is %s, nothing to retry: %w", sessionID, session.Status, ErrClaimLost)
	}
	return s.CompleteSession(ctx, ledgerID, sessionID, session.ChargeID)
}

// ExpireStale sweeps sessions that were never claimed past their expiry.
func (s *CheckoutService) ExpireStale(ledgerID string) (int64, error) {
	result, err := s.db.Exec(`
		UPDATE checkout_sessions
		SET status = $1, updated_at = $2
		WHERE ledger_id = $3 AND status IN ($4, $5) AND expires_at <= $2`,
		models.CheckoutExpired, time.Now(), ledgerID,
		models.CheckoutPending, models.CheckoutCollecting)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetSession loads a session.
func (s *CheckoutService) GetSession(ledgerID, sessionID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	var productID sql.NullString
	err := s.db.QueryRow(`
		SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,
		       status, state_token, charge_id, failure_reason, expires_at, created_at, updated_at
		FROM checkout_sessions WHERE ledger_id = $1 AND id = $2`,
		ledgerID, sessionID).Scan(
		&session.ID, &session.LedgerID, &session.ReferenceID, &session.CounterpartyID, &productID,
		&session.Amount, &session.Currency, &session.Status, &session.StateToken, &session.ChargeID,
		&session.FailureReason, &session.ExpiresAt, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	session.ProductID = productID.String
	return &session, nil
}

func (s *CheckoutService) markChargedPendingLedger(ledgerID, sessionID, chargeID string, cause error) error {
	_, err := s.db.Exec(`
		UPDATE checkout_sessions
		SET status = $1, charge_id = $2, failure_reason = $3, updated_at = $4
		WHERE id = $5 AND ledger_id = $6`,
		models.CheckoutChargedNoPost, chargeID, cause.Error(), time.Now(), sessionID, ledgerID)
	return err
}

func newStateToken() string {
	b := make([]byte, 24)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
