package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// webhookQueueKey is the Redis list the delivery worker drains. Delivery
// mechanics live outside this service.
const webhookQueueKey = "webhook_events"

type WebhookEvent struct {
	LedgerID  string    `json:"ledger_id"`
	EventType string    `json:"event_type"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookQueue enqueues outbound event descriptions after a successful post.
// Enqueueing is best-effort and tolerates a nil Redis client.
type WebhookQueue struct {
	redis *redis.Client
}

func NewWebhookQueue(redisClient *redis.Client) *WebhookQueue {
	return &WebhookQueue{redis: redisClient}
}

func (q *WebhookQueue) Enqueue(ctx context.Context, ledgerID, eventType string, payload any) {
	if q.redis == nil {
		return
	}

	event := WebhookEvent{
		LedgerID:  ledgerID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WEBHOOK] Failed to marshal event %s: %v", eventType, err)
		return
	}

	if err := q.redis.RPush(ctx, webhookQueueKey, string(data)).Err(); err != nil {
		log.Printf("[WEBHOOK] Failed to enqueue event %s: %v", eventType, err)
	}
}
