package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/search"
)

var (
	noID   *int64
	noTime *time.Time
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("asha", "asha@example.org", "hash", false).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := NewUserRepository(mock, zap.NewNop()).Create(context.Background(),
		&model.User{Username: "asha", Email: "asha@example.org", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1)")).
		WithArgs("asha@example.org").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "is_admin", "created_at"}).
			AddRow(int64(3), "asha", "asha@example.org", "hash", true, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(email) = lower($1)")).
		WithArgs("nobody@example.org").
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock, zap.NewNop())
	u, err := repo.FindByEmail(context.Background(), "asha@example.org")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.True(t, u.IsAdmin)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_ToggleAdmin(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("UPDATE users SET is_admin = NOT is_admin").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"is_admin"}).AddRow(true))

	isAdmin, err := NewUserRepository(mock, zap.NewNop()).ToggleAdmin(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestMissingPersonRepository_Search(t *testing.T) {
	mock := newMock(t)
	dob := time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC)
	reported := time.Now()

	q := search.Compose(search.Criteria{Category: "child", Term: "pri"})
	mock.ExpectQuery(regexp.QuoteMeta("FROM missing_persons WHERE category = $1 AND (name ILIKE $2 OR description ILIKE $2) AND case_state <> $3 ORDER BY reported_at DESC")).
		WithArgs("child", "%pri%", "found_reunited").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "dob", "category", "last_known_location", "description",
			"contact_info", "image_url", "case_state", "reported_by", "reported_at"}).
			AddRow(int64(1), "Priya", &dob, "child", "Old Town", "", "Name: Asha", "", "missing", noID, reported))

	got, err := NewMissingPersonRepository(mock, zap.NewNop()).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Priya", got[0].Name)
	assert.Equal(t, model.CategoryChild, got[0].Category)
	assert.Equal(t, model.CaseMissing, got[0].CaseState)
	require.NotNil(t, got[0].DOB)
	assert.Equal(t, 2017, got[0].DOB.Year())
}

func TestMissingPersonRepository_Create(t *testing.T) {
	mock := newMock(t)
	reporter := int64(9)
	mock.ExpectQuery("INSERT INTO missing_persons").
		WithArgs("Priya", noTime, "child", "Old Town", "", "", "", "missing", &reporter).
		WillReturnRows(pgxmock.NewRows([]string{"id", "reported_at"}).AddRow(int64(5), time.Now()))

	p := &model.MissingPerson{Name: "Priya", Category: model.CategoryChild, LastKnownLocation: "Old Town", ReportedBy: &reporter}
	require.NoError(t, NewMissingPersonRepository(mock, zap.NewNop()).Create(context.Background(), p))
	assert.Equal(t, int64(5), p.ID)
	assert.Equal(t, model.CaseMissing, p.CaseState)
}

func TestMissingPersonRepository_UpdateCaseStateNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("UPDATE missing_persons SET case_state").
		WithArgs("found_reunited", int64(77)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewMissingPersonRepository(mock, zap.NewNop()).UpdateCaseState(context.Background(), 77, model.CaseFoundReunited)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationRepository_RecentAndMarkAll(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("FROM admin_notifications").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "message", "type", "is_read", "user_id", "created_at"}).
			AddRow(int64(2), "New report", "x", "report", false, noID, now).
			AddRow(int64(1), "Login", "y", "login", true, noID, now.Add(-time.Minute)))
	mock.ExpectExec(regexp.QuoteMeta("SET is_read = TRUE WHERE is_read = FALSE")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewNotificationRepository(mock, zap.NewNop())
	items, err := repo.Recent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.NotificationReport, items[0].Type)
	assert.False(t, items[0].IsRead)

	require.NoError(t, repo.MarkAllRead(context.Background()))
}

func TestNotificationRepository_InsertInTx(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO admin_notifications").
		WithArgs("Donation", "Asha wants to donate", "donation", noID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_read", "created_at"}).AddRow(int64(11), false, time.Now()))
	mock.ExpectRollback()

	ctx := context.Background()
	repo := NewNotificationRepository(mock, zap.NewNop())
	tx, err := repo.Pool().Begin(ctx)
	require.NoError(t, err)

	n := &model.AdminNotification{Title: "Donation", Message: "Asha wants to donate", Type: model.NotificationDonation}
	require.NoError(t, repo.Insert(ctx, tx, n))
	assert.Equal(t, int64(11), n.ID)
	require.NoError(t, tx.Rollback(ctx))
}

func TestStoryRepository(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM success_stories WHERE is_published ORDER BY created_at DESC")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "description", "content", "category", "is_published", "created_by", "created_at", "updated_at"}).
			AddRow(int64(1), "Home again", "", "...", "general", true, noID, now, now))
	mock.ExpectExec("DELETE FROM success_stories").
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewStoryRepository(mock, zap.NewNop())
	stories, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, stories, 1)

	assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrNotFound)
}

func TestDonationRepository_Create(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO donations").
		WithArgs("Asha", "asha@example.org", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	d := &model.Donation{Name: "Asha", Email: "asha@example.org"}
	require.NoError(t, NewDonationRepository(mock, zap.NewNop()).Create(context.Background(), d))
	assert.Equal(t, int64(1), d.ID)
}

func TestSearchQueryRepository_Insert(t *testing.T) {
	mock := newMock(t)
	var noCategory *string
	mock.ExpectQuery("INSERT INTO search_queries").
		WithArgs("pri", "5-10", "", noCategory, "10.0.0.1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "searched_at"}).AddRow(int64(1), time.Now()))

	q := &model.SearchQuery{SearchTerm: "pri", AgeRange: "5-10", UserIP: "10.0.0.1"}
	require.NoError(t, NewSearchQueryRepository(mock, zap.NewNop()).Insert(context.Background(), q))
}
