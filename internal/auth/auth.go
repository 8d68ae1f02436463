// Package auth guards the HTTP API behind an optional shared password.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

type contextKey string

const visitorContextKey contextKey = "auth/visitor"

// SessionManager signs and validates lightweight session tokens.
type SessionManager struct {
	Secret       []byte
	Duration     time.Duration
	CookieName   string
	SecureCookie bool
}

// Claims captures decoded session data.
type Claims struct {
	VisitorID string
	ExpiresAt time.Time
}

// Gate checks the shared password and the session cookie. A Gate without a password hash lets
// every request through.
type Gate struct {
	PasswordHash string
	Sessions     SessionManager
}

type loginRequest struct {
	Password string `json:"password"`
}

// HashPassword returns the bcrypt hash to put in ACCESS_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", fmt.Errorf("password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Enabled reports whether a password is required.
func (g Gate) Enabled() bool {
	return strings.TrimSpace(g.PasswordHash) != ""
}

// Check compares password with the configured hash.
func (g Gate) Check(password string) error {
	if !g.Enabled() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// RequireAuth rejects requests without a valid session cookie when the gate is enabled.
func (g Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		cookie, err := r.Cookie(g.Sessions.cookieName())
		if err != nil || cookie.Value == "" {
			http.Error(w, "accesso richiesto", http.StatusUnauthorized)
			return
		}
		claims, err := g.Sessions.Parse(cookie.Value)
		if err != nil || !claims.ExpiresAt.After(time.Now()) {
			// Clear unusable cookies to avoid loops.
			clear := g.Sessions.expiredCookie()
			http.SetCookie(w, &clear)
			http.Error(w, "sessione scaduta", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), claims.VisitorID)))
	})
}

// Login handles POST /api/auth/login.
func (g Gate) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "richiesta non valida", http.StatusBadRequest)
		return
	}
	if !g.Enabled() {
		_ = jsonResponse(w, http.StatusOK, map[string]any{"auth": "disabled"})
		return
	}
	if payload.Password == "" {
		http.Error(w, "password obbligatoria", http.StatusBadRequest)
		return
	}
	if err := g.Check(payload.Password); err != nil {
		http.Error(w, "password errata", http.StatusUnauthorized)
		return
	}

	visitorID := uuid.NewString()
	token, exp, err := g.Sessions.Issue(visitorID)
	if err != nil {
		http.Error(w, "impossibile creare la sessione", http.StatusInternalServerError)
		return
	}
	cookie := g.Sessions.cookie(token, exp)
	http.SetCookie(w, &cookie)
	_ = jsonResponse(w, http.StatusOK, map[string]any{
		"visitor_id": visitorID,
		"expires_at": exp.UTC(),
	})
}

// Logout handles POST /api/auth/logout.
func (g Gate) Logout(w http.ResponseWriter, _ *http.Request) {
	cookie := g.Sessions.expiredCookie()
	http.SetCookie(w, &cookie)
	w.WriteHeader(http.StatusNoContent)
}

// Parse validates a token and returns session claims.
func (sm SessionManager) Parse(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Claims{}, errors.New("invalid token format")
	}
	payload := parts[0]
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decode signature: %w", err)
	}

	if !hmac.Equal(sm.sign(payload), sig) {
		return Claims{}, errors.New("signature mismatch")
	}

	payloadParts := strings.Split(payload, "|")
	if len(payloadParts) != 2 {
		return Claims{}, errors.New("invalid payload")
	}
	expUnix, err := strconv.ParseInt(payloadParts[1], 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("parse expiry: %w", err)
	}
	return Claims{VisitorID: payloadParts[0], ExpiresAt: time.Unix(expUnix, 0)}, nil
}

// Issue builds a signed session token for the visitor.
func (sm SessionManager) Issue(visitorID string) (string, time.Time, error) {
	if len(sm.Secret) == 0 {
		return "", time.Time{}, errors.New("session secret missing")
	}
	expires := time.Now().Add(sm.sessionDuration())
	payload := fmt.Sprintf("%s|%d", visitorID, expires.Unix())
	token := payload + "." + base64.RawURLEncoding.EncodeToString(sm.sign(payload))
	return token, expires, nil
}

func (sm SessionManager) sign(payload string) []byte {
	mac := hmac.New(sha256.New, sm.Secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// WithVisitor stores the authenticated visitor in context.
func WithVisitor(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorContextKey, visitorID)
}

// VisitorFromContext extracts the authenticated visitor from context if present.
func VisitorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitorContextKey).(string)
	return id, ok && id != ""
}

func (sm SessionManager) cookie(token string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     sm.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.SecureCookie,
	}
}

func (sm SessionManager) expiredCookie() http.Cookie {
	return http.Cookie{
		Name:     sm.cookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.SecureCookie,
	}
}

func (sm SessionManager) cookieName() string {
	if sm.CookieName != "" {
		return sm.CookieName
	}
	return "garden_session"
}

func (sm SessionManager) sessionDuration() time.Duration {
	if sm.Duration <= 0 {
		return 12 * time.Hour
	}
	return sm.Duration
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func jsonResponse(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}
