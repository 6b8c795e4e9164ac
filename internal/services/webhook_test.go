package services

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestWebhookQueue_Enqueue(t *testing.T) {
	t.Run("pushes the serialized event onto the delivery list", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		queue := NewWebhookQueue(client)

		mock.Regexp().ExpectRPush(webhookQueueKey, `.*"event_type":"sale\.recorded".*`).SetVal(1)

		queue.Enqueue(context.Background(), "led-1", "sale.recorded", map[string]any{
			"transaction_id": "tx-1",
			"amount":         2999,
		})

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("enqueue failures never propagate", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		queue := NewWebhookQueue(client)

		mock.Regexp().ExpectRPush(webhookQueueKey, `.*`).SetErr(assert.AnError)

		// Must not panic or surface the error; delivery is best-effort.
		queue.Enqueue(context.Background(), "led-1", "sale.recorded", nil)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tolerates a nil client", func(t *testing.T) {
		queue := NewWebhookQueue(nil)
		queue.Enqueue(context.Background(), "led-1", "sale.recorded", nil)
	})
}
