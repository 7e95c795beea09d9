package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "secret", Issuer: "bjjpoints", TTL: time.Hour}

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue(testConfig, "user-1", "session-1", ScopesFor(true), time.Now())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "session-1", claims.SessionID)
	require.True(t, claims.HasScope(ScopeLedgerSelf))
	require.True(t, claims.HasScope(ScopeLedgerTrainer))
	require.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestParseRejects(t *testing.T) {
	expired, _, err := Issue(testConfig, "user-1", "session-1", nil, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = Parse(expired, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	other, _, err := Issue(Config{Secret: "other", Issuer: "bjjpoints"}, "user-1", "session-1", nil, time.Now())
	require.NoError(t, err)
	_, err = Parse(other, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSession := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"iss": "bjjpoints",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := noSession.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	_, _, err = Issue(Config{}, "user-1", "session-1", nil, time.Now())
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig, PathSkipper("/healthz")).Wrap(next)

	token, _, err := Issue(testConfig, "user-1", "session-1", ScopesFor(false), time.Now())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	seen = nil
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "session-1", seen.SessionID)
	require.False(t, seen.HasScope(ScopeLedgerTrainer))

	seen = nil
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stream?access_token="+token, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-1", seen.Subject)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/activities?access_token="+token, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code, "query tokens are only accepted on GET")

	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
