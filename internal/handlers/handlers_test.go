package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/campaign"
	"github.com/stanstork/sponsordesk-api/internal/derivation"
	"github.com/stanstork/sponsordesk-api/internal/identity"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/notification"
	"github.com/stanstork/sponsordesk-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = authz.Identity{UserID: "user-1", Email: "creator@example.com", SessionID: "s-1"}

type fakeCampaigns struct {
	campaigns []models.Campaign
	err       error
	gotFilter models.CampaignFilter
	gotIndex  int
	gotStatus models.CampaignStatus
}

func (f *fakeCampaigns) List(_ context.Context, _ authz.Identity, filter models.CampaignFilter) ([]models.Campaign, error) {
	f.gotFilter = filter
	return f.campaigns, f.err
}

func (f *fakeCampaigns) find(id string) (models.Campaign, error) {
	if f.err != nil {
		return models.Campaign{}, f.err
	}
	for _, c := range f.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Campaign{}, apperr.ErrNotFound
}

func (f *fakeCampaigns) Get(_ context.Context, _ authz.Identity, id string) (models.Campaign, error) {
	return f.find(id)
}

func (f *fakeCampaigns) Create(_ context.Context, id authz.Identity, in campaign.Input) (models.Campaign, error) {
	if err := in.Validate(true); err != nil {
		return models.Campaign{}, err
	}
	return models.Campaign{ID: "new", UserID: id.UserID, BrandName: *in.BrandName, PaymentAmount: *in.PaymentAmount, AgentCommissionPercentage: decimal.NewFromInt(35)}, nil
}

func (f *fakeCampaigns) Update(_ context.Context, _ authz.Identity, id string, _ campaign.Input) (models.Campaign, error) {
	return f.find(id)
}

func (f *fakeCampaigns) Delete(_ context.Context, _ authz.Identity, id string) error {
	_, err := f.find(id)
	return err
}

func (f *fakeCampaigns) SetStatus(_ context.Context, _ authz.Identity, id string, status models.CampaignStatus) (models.Campaign, error) {
	f.gotStatus = status
	c, err := f.find(id)
	c.Status = status
	return c, err
}

func (f *fakeCampaigns) MarkPaid(_ context.Context, _ authz.Identity, id string) (models.Campaign, error) {
	return f.find(id)
}

func (f *fakeCampaigns) ToggleContentItem(_ context.Context, _ authz.Identity, id string, index int) (models.Campaign, error) {
	f.gotIndex = index
	return f.find(id)
}

func (f *fakeCampaigns) UpdatePublishedLink(_ context.Context, _ authz.Identity, id, link string) (models.Campaign, error) {
	c, err := f.find(id)
	c.PublishedLink = link
	return c, err
}

type fakeTrigger struct {
	reasons []derivation.Reason
	full    bool
}

func (f *fakeTrigger) Trigger(_ authz.Identity, reason derivation.Reason) bool {
	if f.full {
		return false
	}
	f.reasons = append(f.reasons, reason)
	return true
}

type fakeAuth struct {
	loginErr error
}

func (f *fakeAuth) SignUp(_ context.Context, email, _, _ string) (identity.SignUpResult, error) {
	if email == "" {
		return identity.SignUpResult{}, apperr.SignupFailed("Email is required")
	}
	return identity.SignUpResult{ConfirmationRequired: true}, nil
}

func (f *fakeAuth) Confirm(context.Context, string) (identity.Session, error) {
	return identity.Session{}, apperr.ErrNotFound
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (identity.Session, error) {
	if f.loginErr != nil {
		return identity.Session{}, f.loginErr
	}
	return identity.Session{Token: "tok", Identity: authz.Identity{UserID: "user-1", Email: email}}, nil
}

func (f *fakeAuth) Logout(context.Context, authz.Identity) error { return nil }

func (f *fakeAuth) CurrentUser(_ context.Context, id authz.Identity) (models.User, error) {
	return models.User{ID: id.UserID, Email: id.Email}, nil
}

func withVars(r *http.Request, vars map[string]string) *http.Request {
	r = r.WithContext(authz.WithIdentity(r.Context(), owner))
	return mux.SetURLVars(r, vars)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCampaignGetNotFound(t *testing.T) {
	h := NewCampaignHandler(&fakeCampaigns{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/campaigns/missing", nil), map[string]string{"campaignID": "missing"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "campaign not found", decodeBody(t, rec)["error"])
}

func TestCampaignMalformedIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM creator.campaigns`).
		WithArgs("not-a-uuid", owner.UserID).
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	svc := campaign.NewService(repository.NewCampaignRepository(db), nil, zerolog.Nop())
	h := NewCampaignHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/campaigns/not-a-uuid", nil), map[string]string{"campaignID": "not-a-uuid"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "campaign not found", decodeBody(t, rec)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignGetIncludesNetIncome(t *testing.T) {
	c := models.Campaign{ID: "c-1", BrandName: "Acme", PaymentAmount: decimal.NewFromInt(1000), AgentCommissionPercentage: decimal.NewFromInt(35)}
	h := NewCampaignHandler(&fakeCampaigns{campaigns: []models.Campaign{c}}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, withVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"campaignID": "c-1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(650), body["net_income"])
	assert.Equal(t, "Acme", body["brand_name"])
}

func TestCampaignCreateValidation(t *testing.T) {
	h := NewCampaignHandler(&fakeCampaigns{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(`{"brand_name":"Acme","payment_amount":-5}`))
	h.Create(rec, withVars(req, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "payment_amount", decodeBody(t, rec)["field"])
}

func TestCampaignCreate(t *testing.T) {
	h := NewCampaignHandler(&fakeCampaigns{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(`{"brand_name":"Acme","payment_amount":200}`))
	h.Create(rec, withVars(req, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(130), decodeBody(t, rec)["net_income"])
}

func TestCampaignCreateRejectsMalformedBody(t *testing.T) {
	h := NewCampaignHandler(&fakeCampaigns{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Create(rec, withVars(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCampaignListParsesFilter(t *testing.T) {
	svc := &fakeCampaigns{campaigns: []models.Campaign{{ID: "c-1"}}}
	h := NewCampaignHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/campaigns?search=acme&platform=TikTok&status=signed&month=4", nil), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CampaignFilter{Search: "acme", Platform: models.PlatformTikTok, Status: models.StatusSigned, Month: 4}, svc.gotFilter)

	rec = httptest.NewRecorder()
	h.List(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/campaigns?month=13", nil), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCampaignStoreErrorIs500(t *testing.T) {
	svc := &fakeCampaigns{err: apperr.Store("campaigns.list", context.DeadlineExceeded)}
	h := NewCampaignHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, withVars(httptest.NewRequest(http.MethodGet, "/", nil), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCampaignToggleAndStatus(t *testing.T) {
	svc := &fakeCampaigns{campaigns: []models.Campaign{{ID: "c-1"}}}
	h := NewCampaignHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ToggleItem(rec, withVars(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"campaignID": "c-1", "index": "2"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.gotIndex)

	rec = httptest.NewRecorder()
	h.SetStatus(rec, withVars(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"published"}`)), map[string]string{"campaignID": "c-1"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusPublished, svc.gotStatus)
}

func TestCampaignRequiresIdentity(t *testing.T) {
	h := NewCampaignHandler(&fakeCampaigns{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginTriggersScan(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewAuthHandler(&fakeAuth{}, trigger, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"creator@example.com","password":"secret1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", decodeBody(t, rec)["token"])
	assert.Equal(t, []derivation.Reason{derivation.ReasonLogin}, trigger.reasons)
}

func TestLoginFailureIsTypedAuthError(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewAuthHandler(&fakeAuth{loginErr: apperr.LoginFailed("")}, trigger, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"x@example.com","password":"nope"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "login_failed", body["type"])
	assert.Equal(t, "Invalid email or password", body["message"])
	assert.Empty(t, trigger.reasons)
}

func TestSignUpPendingConfirmation(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.SignUp(rec, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["confirmation_required"])

	rec = httptest.NewRecorder()
	h.SignUp(rec, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"","password":"secret1"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "signup_failed", decodeBody(t, rec)["type"])
}

type fakeNotifications struct {
	notification.Service
	list   []models.Notification
	unread int
}

func (f *fakeNotifications) ListRecent(context.Context, string, int) ([]models.Notification, error) {
	return f.list, nil
}

func (f *fakeNotifications) UnreadCount(context.Context, string) (int, error) {
	return f.unread, nil
}

func (f *fakeNotifications) MarkRead(context.Context, string, string) (models.Notification, error) {
	return models.Notification{}, apperr.ErrNotFound
}

func (f *fakeNotifications) UpdateSettings(context.Context, string, notification.SettingsUpdate) (models.NotificationSettings, error) {
	return models.NotificationSettings{}, apperr.Invalid("payment_reminder_days", "must be between 0 and %d", notification.MaxReminderDays)
}

func TestNotificationListIncludesUnreadCount(t *testing.T) {
	svc := &fakeNotifications{list: []models.Notification{{ID: "n-1"}}, unread: 3}
	h := NewNotificationHandler(svc, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/notifications", nil), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["unread_count"])
	assert.Len(t, body["notifications"], 1)
}

func TestNotificationMarkReadNotFound(t *testing.T) {
	h := NewNotificationHandler(&fakeNotifications{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.MarkRead(rec, withVars(httptest.NewRequest(http.MethodPut, "/", nil), map[string]string{"notificationID": "n-9"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "notification not found", decodeBody(t, rec)["error"])
}

func TestNotificationSettingsValidation(t *testing.T) {
	h := NewNotificationHandler(&fakeNotifications{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, withVars(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"payment_reminder_days":120}`)), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationScan(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewNotificationHandler(&fakeNotifications{}, trigger, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Scan(rec, withVars(httptest.NewRequest(http.MethodPost, "/", nil), nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []derivation.Reason{derivation.ReasonManual}, trigger.reasons)

	trigger.full = true
	rec = httptest.NewRecorder()
	h.Scan(rec, withVars(httptest.NewRequest(http.MethodPost, "/", nil), nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFinanceSummary(t *testing.T) {
	due := civil.Date{Year: 2024, Month: 3, Day: 31}
	svc := &fakeCampaigns{campaigns: []models.Campaign{{
		ID:                        "c-1",
		BrandName:                 "Acme",
		PaymentAmount:             decimal.NewFromInt(1000),
		AgentCommissionPercentage: decimal.NewFromInt(35),
		PlannedPaymentDate:        &due,
	}}}
	h := NewFinanceHandler(svc, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.Summary(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/finance?year=2024&month=3", nil), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(650), body["total_pending"])
	assert.Equal(t, []interface{}{float64(2026), float64(2024)}, body["years"])

	rec = httptest.NewRecorder()
	h.Summary(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/finance?year=abc", nil), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	svc := &fakeCampaigns{campaigns: []models.Campaign{{ID: "c-1", PaymentAmount: decimal.NewFromInt(100)}}}
	h := NewFinanceHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Dashboard(rec, withVars(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["waiting_payment_count"])
}

type failingPinger struct{ err error }

func (p failingPinger) PingContext(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(failingPinger{})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthCheck(failingPinger{err: context.DeadlineExceeded})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
