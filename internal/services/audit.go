package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	LedgerID       string    `json:"ledger_id"`
	Action         string    `json:"action"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	Actor          string    `json:"actor,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	RequestSummary string    `json:"request_summary,omitempty"`
	ResponseStatus int       `json:"response_status"`
}

// AuditLogger appends one record per mutating call, for compliance and
// debugging. Writes happen after the main transaction commits and are
// best-effort: a failed audit write is logged, never propagated, and never
// rolls back a posting.
type AuditLogger struct {
	db *sql.DB
}

func NewAuditLogger(db *sql.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record appends an audit record with the default actor/IP left to RecordEvent.
func (a *AuditLogger) Record(ledgerID, action, entityType, entityID, actor, summary string, status int) {
	a.RecordEvent(AuditEvent{
		LedgerID:       ledgerID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		Actor:          actor,
		RequestSummary: summary,
		ResponseStatus: status,
	})
}

func (a *AuditLogger) RecordEvent(event AuditEvent) {
	event.Timestamp = time.Now()

	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))

	if a.db == nil {
		return
	}
	_, err := a.db.Exec(`
		INSERT INTO audit_log (ledger_id, action, entity_type, entity_id, actor, ip_address, request_summary, response_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.LedgerID, event.Action, event.EntityType, event.EntityID,
		event.Actor, event.IPAddress, event.RequestSummary, event.ResponseStatus, event.Timestamp)
	if err != nil {
		log.Printf("[AUDIT] Failed to persist audit record: %v", err)
	}
}
