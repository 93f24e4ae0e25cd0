package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/logging"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/services"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAuth struct {
	registerIn  services.RegisterInput
	registerMsg string
	registerErr error

	confirmToken string
	confirmMsg   string
	confirmErr   error

	loginEmail, loginPassword string
	loginResp                 *services.TokenPair
	loginErr                  error

	refreshIn   string
	refreshResp *services.TokenPair
	refreshErr  error

	logoutIn  string
	logoutErr error

	forgotEmail string
	forgotErr   error

	resetToken, resetPassword string
	resetErr                  error

	calls int
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (string, error) {
	f.calls++
	f.registerIn = in
	return f.registerMsg, f.registerErr
}

func (f *fakeAuth) ConfirmToken(_ context.Context, value string) (string, error) {
	f.calls++
	f.confirmToken = value
	return f.confirmMsg, f.confirmErr
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	f.calls++
	f.loginEmail, f.loginPassword = email, password
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) RefreshToken(_ context.Context, value string) (*services.TokenPair, error) {
	f.calls++
	f.refreshIn = value
	return f.refreshResp, f.refreshErr
}

func (f *fakeAuth) Logout(_ context.Context, value string) error {
	f.calls++
	f.logoutIn = value
	return f.logoutErr
}

func (f *fakeAuth) ForgotPassword(_ context.Context, email string) error {
	f.calls++
	f.forgotEmail = email
	return f.forgotErr
}

func (f *fakeAuth) ResetPassword(_ context.Context, value, newPassword string) error {
	f.calls++
	f.resetToken, f.resetPassword = value, newPassword
	return f.resetErr
}

type fakeUsers struct {
	byEmail     map[string]*models.User
	lookups     int
	profileName string
	pwCurrent   string
	pwNew       string
	changeErr   error
	list        []*models.User
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (*models.User, error) {
	f.lookups++
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Me(_ context.Context, p auth.Principal) (*models.User, error) {
	return f.UserByEmail(context.Background(), p.Email)
}

func (f *fakeUsers) UpdateProfile(_ context.Context, p auth.Principal, displayName string) (*models.User, error) {
	f.profileName = displayName
	u := *f.byEmail[p.Email]
	u.DisplayName = displayName
	return &u, nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, _ auth.Principal, current, newPassword string) error {
	f.pwCurrent, f.pwNew = current, newPassword
	return f.changeErr
}

func (f *fakeUsers) ListUsers(_ context.Context, _ auth.Principal) ([]*models.User, error) {
	return f.list, nil
}

type fakeApps struct {
	principal auth.Principal
	id        int64
	in        services.ApplicationInput
	status    models.ApplicationStatus
	fileName  string

	app  *models.JobApplication
	list []*models.JobApplication
	url  string
	err  error
}

func (f *fakeApps) Create(_ context.Context, p auth.Principal, in services.ApplicationInput) (*models.JobApplication, error) {
	f.principal, f.in = p, in
	return f.app, f.err
}

func (f *fakeApps) List(_ context.Context, p auth.Principal) ([]*models.JobApplication, error) {
	f.principal = p
	return f.list, f.err
}

func (f *fakeApps) Get(_ context.Context, p auth.Principal, id int64) (*models.JobApplication, error) {
	f.principal, f.id = p, id
	return f.app, f.err
}

func (f *fakeApps) Update(_ context.Context, p auth.Principal, id int64, in services.ApplicationInput) (*models.JobApplication, error) {
	f.principal, f.id, f.in = p, id, in
	return f.app, f.err
}

func (f *fakeApps) Delete(_ context.Context, p auth.Principal, id int64) error {
	f.principal, f.id = p, id
	return f.err
}

func (f *fakeApps) PatchStatus(_ context.Context, p auth.Principal, id int64, status models.ApplicationStatus) (*models.JobApplication, error) {
	f.principal, f.id, f.status = p, id, status
	return f.app, f.err
}

func (f *fakeApps) ResumeUploadURL(_ context.Context, p auth.Principal, id int64, fileName string) (string, error) {
	f.principal, f.id, f.fileName = p, id, fileName
	return f.url, f.err
}

func (f *fakeApps) ResumeDownloadURL(_ context.Context, p auth.Principal, id int64) (string, error) {
	f.principal, f.id = p, id
	return f.url, f.err
}

// stubVerifier accepts any token as carrying subject; valid decides IsValid.
type stubVerifier struct {
	subject string
	valid   bool
}

func (v stubVerifier) ExtractSubject(string) (string, error) { return v.subject, nil }
func (v stubVerifier) IsValid(string, string) bool           { return v.valid }

// ---- harness ----

var testSecret = []byte(strings.Repeat("k", 32))

var testPair = services.TokenPair{AccessToken: "access", RefreshToken: "refresh"}

type harness struct {
	srv     *HTTPServer
	handler http.Handler
	codec   *auth.Codec
	auth    *fakeAuth
	users   *fakeUsers
	apps    *fakeApps
}

func newHarness(t *testing.T, rps int) *harness {
	t.Helper()
	codec, err := auth.NewCodec(testSecret, time.Hour, 32)
	require.NoError(t, err)

	h := &harness{
		codec: codec,
		auth:  &fakeAuth{},
		users: &fakeUsers{byEmail: map[string]*models.User{
			"user@example.com":  {ID: 1, Email: "user@example.com", DisplayName: "User", Role: models.RoleUser, Verified: true, Enabled: true},
			"admin@example.com": {ID: 2, Email: "admin@example.com", DisplayName: "Admin", Role: models.RoleAdmin, Verified: true, Enabled: true},
		}},
		apps: &fakeApps{},
	}
	h.srv = NewHTTPServer(":0", logging.Nop{}, h.auth, h.users, h.apps, codec, rps)
	h.handler = h.srv.Handler()
	return h
}

func (h *harness) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := h.codec.Issue(email)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Error
}
