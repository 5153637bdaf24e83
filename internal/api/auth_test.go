package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"barolo/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeIdentityProvider serves /auth/v1/user, resolving known bearer
// tokens to emails.
func newFakeIdentityProvider(t *testing.T, tokens map[string]string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		email, ok := tokens[bearerToken(r.Header.Get("Authorization"))]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"email": email})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestAuth(t *testing.T, idpURL, adminEmails string) *AdminAuth {
	logger := zerolog.New(io.Discard)
	return NewAdminAuth(config.AuthConfig{
		IdentityProviderURL: idpURL,
		ServiceKey:          "service-key",
		AdminEmails:         adminEmails,
	}, &logger)
}

func TestVerifyRequest(t *testing.T) {
	idp := newFakeIdentityProvider(t, map[string]string{"good-token": "Admin@Example.com"})
	auth := newTestAuth(t, idp.URL, "admin@example.com, second@example.com")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	r.Header.Set("Authorization", "Bearer good-token")

	email, err := auth.VerifyRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", email)
}

func TestVerifyRequestMissingToken(t *testing.T) {
	idp := newFakeIdentityProvider(t, nil)
	auth := newTestAuth(t, idp.URL, "admin@example.com")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	_, err := auth.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrUnauthorized)

	r.Header.Set("Authorization", "Basic abc")
	_, err = auth.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRequestInvalidToken(t *testing.T) {
	idp := newFakeIdentityProvider(t, map[string]string{"good-token": "admin@example.com"})
	auth := newTestAuth(t, idp.URL, "admin@example.com")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	r.Header.Set("Authorization", "Bearer expired-token")

	_, err := auth.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRequestNotAllowListed(t *testing.T) {
	idp := newFakeIdentityProvider(t, map[string]string{"good-token": "intruder@example.com"})
	auth := newTestAuth(t, idp.URL, "admin@example.com")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	r.Header.Set("Authorization", "Bearer good-token")

	_, err := auth.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestVerifyRequestNotConfigured(t *testing.T) {
	auth := newTestAuth(t, "", "admin@example.com")
	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	_, err := auth.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrServerNotConfigured)

	idp := newFakeIdentityProvider(t, nil)
	auth = newTestAuth(t, idp.URL, "  ,  ")
	_, err = auth.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "abc", bearerToken("BEARER  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}
