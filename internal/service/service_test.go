package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/repository"
	"brokenweave/internal/search"
	"brokenweave/internal/session"
	"brokenweave/internal/validate"
	"brokenweave/pkg/outbox"
	"brokenweave/pkg/util"
)

// inlineEffects runs side effects synchronously.
type inlineEffects struct {
	names []string
	errs  []error
}

func (e *inlineEffects) Go(ctx context.Context, name string, fn func(context.Context) error) {
	e.names = append(e.names, name)
	e.errs = append(e.errs, fn(ctx))
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.AdminNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n *model.AdminNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, *n)
	return f.err
}

type fakeUsers struct {
	byEmail map[string]*model.User
	created []*model.User
	nextID  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*model.User{}, nextID: 1}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return repository.ErrDuplicate
	}
	u.ID = f.nextID
	f.nextID++
	f.byEmail[u.Email] = u
	f.created = append(f.created, u)
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) FindByID(context.Context, int64) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) { return nil, nil }

func (f *fakeUsers) ToggleAdmin(context.Context, int64) (bool, error) { return true, nil }

type fakeSessions struct {
	ended []string
}

func (f *fakeSessions) Start(_ context.Context, u *model.User) (*session.Session, string, error) {
	id := u.ID
	return &session.Session{ID: "s-1", UserID: &id, Username: u.Username, IsAdmin: u.IsAdmin}, "token", nil
}

func (f *fakeSessions) StartGuest(context.Context) (*session.Session, string, error) {
	return &session.Session{ID: "g-1", Guest: true}, "guest-token", nil
}

func (f *fakeSessions) End(_ context.Context, id string) error {
	f.ended = append(f.ended, id)
	return nil
}

type fakeDonations struct {
	created []*model.Donation
}

func (f *fakeDonations) Create(_ context.Context, d *model.Donation) error {
	d.ID = int64(len(f.created) + 1)
	f.created = append(f.created, d)
	return nil
}

func (f *fakeDonations) List(context.Context) ([]model.Donation, error) { return nil, nil }

type fakeReports struct {
	records []model.MissingPerson
	created []*model.MissingPerson
	queries []search.Query
	err     error
}

func (f *fakeReports) Create(_ context.Context, p *model.MissingPerson) error {
	p.ID = int64(len(f.created) + 1)
	f.created = append(f.created, p)
	return nil
}

func (f *fakeReports) GetByID(context.Context, int64) (*model.MissingPerson, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeReports) Search(_ context.Context, q search.Query) ([]model.MissingPerson, error) {
	f.queries = append(f.queries, q)
	return f.records, f.err
}

func (f *fakeReports) ListAll(context.Context) ([]model.MissingPerson, error) { return f.records, nil }

func (f *fakeReports) UpdateCaseState(context.Context, int64, model.CaseState) error { return nil }

type fakeQueries struct {
	inserted []*model.SearchQuery
}

func (f *fakeQueries) Insert(_ context.Context, q *model.SearchQuery) error {
	f.inserted = append(f.inserted, q)
	return nil
}

func member(id int64) *session.Session {
	return &session.Session{ID: "s", UserID: &id, Username: "asha"}
}

func TestDonation_EmptyNameRejectedBeforeWrite(t *testing.T) {
	store := &fakeDonations{}
	notifier := &fakeNotifier{}
	effects := &inlineEffects{}
	svc := NewDonationService(store, validate.New(), effects, notifier, zap.NewNop())

	_, err := svc.Create(context.Background(), member(1), DonationInput{Name: "  ", Email: "a@b.org"})

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Empty(t, store.created)
	assert.Empty(t, notifier.sent)
}

func TestDonation_GuestForbidden(t *testing.T) {
	store := &fakeDonations{}
	svc := NewDonationService(store, validate.New(), &inlineEffects{}, &fakeNotifier{}, zap.NewNop())

	_, err := svc.Create(context.Background(), &session.Session{ID: "g", Guest: true}, DonationInput{Name: "Asha", Email: "a@b.org"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, store.created)
}

func TestDonation_NotificationFailureDoesNotFailWrite(t *testing.T) {
	store := &fakeDonations{}
	notifier := &fakeNotifier{err: errors.New("db down")}
	effects := &inlineEffects{}
	svc := NewDonationService(store, validate.New(), effects, notifier, zap.NewNop())

	d, err := svc.Create(context.Background(), member(7), DonationInput{Name: "Asha", Email: "a@b.org"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, model.NotificationDonation, notifier.sent[0].Type)
	assert.Equal(t, []string{"notify_donation"}, effects.names)
}

func TestRegister_PasswordMismatchNeverInserts(t *testing.T) {
	users := newFakeUsers()
	svc := NewAuthService(users, &fakeSessions{}, validate.New(), &inlineEffects{}, &fakeNotifier{}, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "asha", Email: "a@b.org", Password: "secret1", ConfirmPassword: "secret2",
	})

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "confirm_password")
	assert.Empty(t, users.created)
}

func TestRegister_HashesAndNotifies(t *testing.T) {
	users := newFakeUsers()
	notifier := &fakeNotifier{}
	svc := NewAuthService(users, &fakeSessions{}, validate.New(), &inlineEffects{}, notifier, zap.NewNop())

	res, err := svc.Register(context.Background(), RegisterInput{
		Username: "asha", Email: "A@B.org", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "token", res.Token)
	require.Len(t, users.created, 1)
	assert.Equal(t, "a@b.org", users.created[0].Email)
	assert.NotEqual(t, "secret1", users.created[0].PasswordHash)
	assert.True(t, util.CheckPassword("secret1", users.created[0].PasswordHash))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, model.NotificationRegistration, notifier.sent[0].Type)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "asha2", Email: "a@b.org", Password: "secret1", ConfirmPassword: "secret1",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	users := newFakeUsers()
	hash, err := util.HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &model.User{Username: "asha", Email: "a@b.org", PasswordHash: hash}))

	notifier := &fakeNotifier{}
	svc := NewAuthService(users, &fakeSessions{}, validate.New(), &inlineEffects{}, notifier, zap.NewNop())

	_, errUnknown := svc.Login(context.Background(), LoginInput{Email: "x@b.org", Password: "secret1"})
	_, errWrong := svc.Login(context.Background(), LoginInput{Email: "a@b.org", Password: "nope"})
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrong)
	assert.Empty(t, notifier.sent)

	res, err := svc.Login(context.Background(), LoginInput{Email: "a@b.org", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "asha", res.Session.Username)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, model.NotificationLogin, notifier.sent[0].Type)
}

func TestLogout_RunsHooks(t *testing.T) {
	sessions := &fakeSessions{}
	svc := NewAuthService(newFakeUsers(), sessions, validate.New(), &inlineEffects{}, &fakeNotifier{}, zap.NewNop())

	var dropped []string
	svc.OnLogout(func(id string) { dropped = append(dropped, id) })

	require.NoError(t, svc.Logout(context.Background(), member(1)))
	assert.Equal(t, []string{"s"}, sessions.ended)
	assert.Equal(t, []string{"s"}, dropped)
}

func TestReport_BuildsRecord(t *testing.T) {
	reports := &fakeReports{}
	notifier := &fakeNotifier{}
	svc := NewReportService(reports, validate.New(), &inlineEffects{}, notifier, zap.NewNop())

	p, err := svc.Create(context.Background(), member(3), ReportInput{
		Name:         "Priya",
		DOB:          "2017-03-04",
		Category:     "senior-citizen",
		ContactName:  "Ravi",
		ContactPhone: "123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategorySenior, p.Category)
	assert.Equal(t, model.CaseMissing, p.CaseState)
	assert.Equal(t, "Name: Ravi | Phone: 123", p.ContactInfo)
	require.NotNil(t, p.ReportedBy)
	assert.Equal(t, int64(3), *p.ReportedBy)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, model.NotificationReport, notifier.sent[0].Type)
}

func TestReport_FutureDOBRejected(t *testing.T) {
	reports := &fakeReports{}
	svc := NewReportService(reports, validate.New(), &inlineEffects{}, &fakeNotifier{}, zap.NewNop())

	_, err := svc.Create(context.Background(), member(3), ReportInput{
		Name: "Priya", Category: "child", DOB: time.Now().AddDate(1, 0, 0).Format("2006-01-02"),
	})
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "dob")
	assert.Empty(t, reports.created)
}

func TestSearch_DefaultListingSkipsTelemetry(t *testing.T) {
	reports := &fakeReports{}
	queries := &fakeQueries{}
	svc := NewSearchService(reports, queries, &inlineEffects{}, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), search.Criteria{Category: "all"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, queries.inserted)
	require.Len(t, reports.queries, 1)
}

func TestSearch_ExplicitAppliesAgeAndRecords(t *testing.T) {
	now := time.Now()
	dob7 := now.AddDate(-7, 0, -1)
	dob30 := now.AddDate(-30, 0, 0)
	reports := &fakeReports{records: []model.MissingPerson{
		{ID: 1, Name: "Priya", DOB: &dob7, Category: model.CategoryChild},
		{ID: 2, Name: "Ramesh", DOB: &dob30, Category: model.CategoryChild},
		{ID: 3, Name: "No DOB", Category: model.CategoryChild},
	}}
	queries := &fakeQueries{}
	svc := NewSearchService(reports, queries, &inlineEffects{}, nil, zap.NewNop())

	got, err := svc.Search(context.Background(), search.Criteria{Category: "Child", AgeRange: "5-10"}, "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Priya", got[0].Name)

	require.Len(t, queries.inserted, 1)
	require.NotNil(t, queries.inserted[0].Category)
	assert.Equal(t, "child", *queries.inserted[0].Category)
	assert.Equal(t, "5-10", queries.inserted[0].AgeRange)
	assert.Equal(t, "10.0.0.1", queries.inserted[0].UserIP)
}

func TestSearch_InvalidCategoryNeverQueries(t *testing.T) {
	reports := &fakeReports{}
	svc := NewSearchService(reports, &fakeQueries{}, &inlineEffects{}, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), search.Criteria{Category: "adult"}, "")
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, reports.queries)
}

func TestSearch_SubmitKeepsPreviousRecordsOnError(t *testing.T) {
	reports := &fakeReports{records: []model.MissingPerson{{ID: 1, Name: "Priya"}}}
	svc := NewSearchService(reports, &fakeQueries{}, &inlineEffects{}, nil, zap.NewNop())

	snap, err := svc.Submit(context.Background(), "s", search.Criteria{Term: "pri"}, "")
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)

	reports.err = errors.New("backend down")
	snap, err = svc.Submit(context.Background(), "s", search.Criteria{Term: "ram"}, "")
	require.Error(t, err)
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, "backend down", snap.Error)
	assert.Equal(t, snap, svc.Page("s"))
}

func TestSettings_DefaultsThenUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewSettingsService(rdb, validate.New())

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)

	_, err = svc.Update(context.Background(), SettingsInput{SiteName: "", ContactEmail: "x@y.org"})
	require.Error(t, err)

	updated, err := svc.Update(context.Background(), SettingsInput{
		SiteName: "Weave", ContactEmail: "x@y.org", MaintenanceMode: true,
	})
	require.NoError(t, err)

	got, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.True(t, got.MaintenanceMode)
}

func TestUserService_CannotToggleSelf(t *testing.T) {
	svc := NewUserService(newFakeUsers(), zap.NewNop())
	_, err := svc.ToggleAdmin(context.Background(), member(4), 4)
	assert.ErrorIs(t, err, ErrForbidden)

	isAdmin, err := svc.ToggleAdmin(context.Background(), member(4), 5)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestReport_ListAllFiltersByTermAndStatus(t *testing.T) {
	reports := &fakeReports{records: []model.MissingPerson{
		{ID: 1, Name: "Priya Ramesh", LastKnownLocation: "Chennai", CaseState: model.CaseMissing},
		{ID: 2, Name: "Arjun", LastKnownLocation: "Madurai", CaseState: model.CaseInvestigating},
		{ID: 3, Name: "Meena", LastKnownLocation: "chennai central", CaseState: model.CaseFoundReunited},
	}}
	svc := NewReportService(reports, validate.New(), &inlineEffects{}, &fakeNotifier{}, zap.NewNop())
	ctx := context.Background()

	ids := func(f ListFilter) []int64 {
		t.Helper()
		got, err := svc.ListAll(ctx, f)
		require.NoError(t, err)
		out := []int64{}
		for _, r := range got {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2, 3}, ids(ListFilter{}))
	assert.Equal(t, []int64{1, 3}, ids(ListFilter{Term: "CHENNAI"}))
	assert.Equal(t, []int64{1}, ids(ListFilter{Term: "priya"}))
	assert.Equal(t, []int64{3}, ids(ListFilter{Term: "chennai", Status: "found"}))
	assert.Equal(t, []int64{2}, ids(ListFilter{Status: "investigating"}))
	assert.Equal(t, []int64{1, 2, 3}, ids(ListFilter{Status: "all"}))

	_, err := svc.ListAll(ctx, ListFilter{Status: "closed"})
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestFilterUsers_MatchesUsernameOrEmail(t *testing.T) {
	users := []model.User{
		{ID: 1, Username: "asha", Email: "asha@example.org"},
		{ID: 2, Username: "ravi", Email: "r.k@volunteers.in"},
	}
	assert.Len(t, FilterUsers(users, ListFilter{}), 2)
	got := FilterUsers(users, ListFilter{Term: "Volunteers"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Empty(t, FilterUsers(users, ListFilter{Term: "nobody"}))
}

func TestFilterVolunteers_MatchesNameEmailOrSkills(t *testing.T) {
	volunteers := []model.Volunteer{
		{ID: 1, Name: "Kavya", Email: "kavya@example.org", Skills: "first aid, Tamil"},
		{ID: 2, Name: "Sunil", Email: "sunil@example.org", Skills: "driving"},
	}
	got := FilterVolunteers(volunteers, ListFilter{Term: "tamil"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Len(t, FilterVolunteers(volunteers, ListFilter{Term: "EXAMPLE.org"}), 2)
	assert.Len(t, FilterVolunteers(volunteers, ListFilter{Term: "sun"}), 1)
}

func TestOutboxNotifier_InsertsRowAndEventInOneTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	uid := int64(9)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO admin_notifications").
		WithArgs("New donation", "Asha donated.", "donation", &uid).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_read", "created_at"}).AddRow(int64(42), false, now))
	mock.ExpectQuery("INSERT INTO outbox_events").
		WithArgs("admin_notification", pgxmock.AnyArg(), "admin_notification.created", pgxmock.AnyArg(), outbox.StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectCommit()

	notifications := repository.NewNotificationRepository(mock, zap.NewNop())
	n := NewOutboxNotifier(mock, notifications, outbox.NewRepository(mock), zap.NewNop())

	msg := &model.AdminNotification{Title: "New donation", Message: "Asha donated.", Type: model.NotificationDonation, UserID: &uid}
	require.NoError(t, n.Notify(context.Background(), msg))
	assert.Equal(t, int64(42), msg.ID)
}

func TestOutboxNotifier_RollsBackWhenOutboxFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	var noUser *int64

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO admin_notifications").
		WithArgs("User logged in", "asha signed in.", "login", noUser).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_read", "created_at"}).AddRow(int64(1), false, now))
	mock.ExpectQuery("INSERT INTO outbox_events").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	notifications := repository.NewNotificationRepository(mock, zap.NewNop())
	n := NewOutboxNotifier(mock, notifications, outbox.NewRepository(mock), zap.NewNop())

	err = n.Notify(context.Background(), &model.AdminNotification{Title: "User logged in", Message: "asha signed in.", Type: model.NotificationLogin})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
