package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brokenweave/pkg/trace"
)

var (
	noID   *int64
	noTime *time.Time
)

var columns = []string{"id", "aggregate_type", "aggregate_id", "routing_key", "payload", "status",
	"retry_count", "next_retry_at", "created_at", "updated_at"}

type published struct {
	routingKey string
	payload    any
	traceID    string
}

type fakePublisher struct {
	fail map[string]error
	sent []published
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if err := f.fail[routingKey]; err != nil {
		return err
	}
	f.sent = append(f.sent, published{routingKey: routingKey, payload: payload, traceID: trace.FromContext(ctx)})
	return nil
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestInsertEventInTx(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	id := int64(9)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO outbox_events").
		WithArgs("admin_notification", &id, "admin_notification.created", pgxmock.AnyArg(), StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	repo := NewRepository(mock)
	event, err := InsertEventInTx(ctx, tx, repo, "admin_notification", &id, "admin_notification.created", map[string]any{"id": 9})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, int64(1), event.ID)
	assert.JSONEq(t, `{"id":9}`, string(event.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventByID_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM outbox_events WHERE id").
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewRepository(mock).GetEventByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetEvent_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewRepository(mock).ResetEvent(context.Background(), 3)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestDispatcher_ProcessPending(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	rows := pgxmock.NewRows(columns).
		AddRow(int64(1), "admin_notification", noID, "ok.key", []byte(`{"id":1,"trace_id":"abc"}`), StatusPending, 0, noTime, now, now).
		AddRow(int64(2), "admin_notification", noID, "bad.key", []byte(`{"id":2}`), StatusPending, 0, noTime, now, now)
	mock.ExpectQuery("WHERE status = 'pending'").WithArgs(100).WillReturnRows(rows)
	mock.ExpectExec("SET status = 'sent'").WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("SET retry_count = retry_count \\+ 1").WithArgs(int64(2), 5).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	pub := &fakePublisher{fail: map[string]error{"bad.key": errors.New("channel closed")}}
	d := NewDispatcher(NewRepository(mock), pub, zap.NewNop())

	sent := d.ProcessPending(context.Background())
	assert.Equal(t, 1, sent)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "ok.key", pub.sent[0].routingKey)
	assert.Equal(t, "abc", pub.sent[0].traceID)
	assert.JSONEq(t, `{"id":1,"trace_id":"abc"}`, string(pub.sent[0].payload.(json.RawMessage)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplayFailedEvents(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("WHERE status = 'failed'").WithArgs(10).WillReturnRows(
		pgxmock.NewRows(columns).AddRow(int64(4), "admin_notification", noID, "ok.key", []byte(`{}`), StatusFailed, 5, noTime, now, now))
	mock.ExpectQuery("FROM outbox_events WHERE id").WithArgs(int64(4)).WillReturnRows(
		pgxmock.NewRows(columns).AddRow(int64(4), "admin_notification", noID, "ok.key", []byte(`{}`), StatusFailed, 5, noTime, now, now))
	mock.ExpectExec("SET status = 'sent'").WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	pub := &fakePublisher{}
	n, err := NewReplayService(NewRepository(mock), pub, zap.NewNop()).ReplayFailedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, pub.sent, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
