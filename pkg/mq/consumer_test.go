package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int64
		max      int64
		want     Outcome
	}{
		{"success", nil, 1, 3, OutcomeAck},
		{"retryable first attempt", context.DeadlineExceeded, 1, 3, OutcomeRequeue},
		{"retryable at limit", context.DeadlineExceeded, 3, 3, OutcomeRequeue},
		{"retryable exhausted", context.DeadlineExceeded, 4, 3, OutcomeDeadLetter},
		{"retry disabled", context.DeadlineExceeded, 1, 0, OutcomeDeadLetter},
		{"bad payload", &json.SyntaxError{}, 1, 3, OutcomeDeadLetter},
		{"duplicate", &pgconn.PgError{Code: "23505"}, 1, 3, OutcomeDeadLetter},
		{"unknown", errors.New("boom"), 1, 3, OutcomeDeadLetter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Decide(tt.err, tt.attempts, tt.max)
			assert.Equal(t, tt.want, got, got.String())
		})
	}
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "admin_notification.created.q", QueueName("admin_notification.created"))
	assert.Equal(t, "admin_notification.created.web-1.q", BroadcastQueueName("admin_notification.created", "web-1"))
	assert.NotEqual(t,
		BroadcastQueueName("admin_notification.created", "web-1"),
		BroadcastQueueName("admin_notification.created", "web-2"),
	)
}
