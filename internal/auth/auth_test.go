package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) Gate {
	t.Helper()
	hash, err := HashPassword("giardino")
	require.NoError(t, err)
	return Gate{PasswordHash: hash, Sessions: SessionManager{Secret: []byte("test-secret")}}
}

func TestIssueAndParse(t *testing.T) {
	sm := SessionManager{Secret: []byte("s3cret"), Duration: time.Hour}
	token, exp, err := sm.Issue("visitor-1")
	require.NoError(t, err)

	claims, err := sm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "visitor-1", claims.VisitorID)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())

	_, err = SessionManager{Secret: []byte("other")}.Parse(token)
	assert.Error(t, err)
	_, err = sm.Parse("garbage")
	assert.Error(t, err)
}

func TestIssueRequiresSecret(t *testing.T) {
	_, _, err := SessionManager{}.Issue("visitor-1")
	assert.Error(t, err)
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	_, err := HashPassword("abc")
	assert.Error(t, err)
}

func TestDisabledGatePassesThrough(t *testing.T) {
	called := false
	h := Gate{}.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.True(t, called)
}

func TestLoginAndRequireAuth(t *testing.T) {
	gate := newGate(t)
	protected := gate.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := VisitorFromContext(r.Context())
		assert.True(t, ok)
		_, _ = w.Write([]byte(id))
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	gate.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"sbagliata"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	gate.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"giardino"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestRequireAuthClearsExpiredCookie(t *testing.T) {
	gate := newGate(t)
	token, _, err := SessionManager{Secret: gate.Sessions.Secret, Duration: time.Nanosecond}.Issue("visitor-1")
	require.NoError(t, err)
	time.Sleep(time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: "garden_session", Value: token})
	rec := httptest.NewRecorder()
	gate.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
