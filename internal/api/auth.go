package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"barolo/internal/config"

	"github.com/rs/zerolog"
)

var (
	// ErrUnauthorized covers a missing or invalid bearer credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAllowed covers a valid credential whose resolved email is not
	// on the admin allow-list. Kept distinct from ErrUnauthorized so staff
	// can tell a bad login from a missing grant.
	ErrNotAllowed = errors.New("not allowed")

	// ErrServerNotConfigured covers a missing identity-provider URL or
	// service key.
	ErrServerNotConfigured = errors.New("server not configured")

	// ErrAdminNotConfigured covers an empty admin allow-list.
	ErrAdminNotConfigured = errors.New("admin access not configured")
)

// AdminAuth resolves bearer credentials against the identity provider and
// checks the resolved email against the configured allow-list.
type AdminAuth struct {
	cfg        config.AuthConfig
	allowList  map[string]struct{}
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewAdminAuth(cfg config.AuthConfig, logger *zerolog.Logger) *AdminAuth {
	allowList := make(map[string]struct{})
	for _, email := range cfg.AdminAllowList() {
		allowList[email] = struct{}{}
	}
	return &AdminAuth{
		cfg:        cfg,
		allowList:  allowList,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// VerifyRequest returns the authorized admin email for the request, or one
// of the sentinel errors above. It performs no side effects, so callers can
// reject before doing any work.
func (a *AdminAuth) VerifyRequest(r *http.Request) (string, error) {
	if a.cfg.IdentityProviderURL == "" || a.cfg.ServiceKey == "" {
		return "", ErrServerNotConfigured
	}
	if len(a.allowList) == 0 {
		return "", ErrAdminNotConfigured
	}

	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return "", ErrUnauthorized
	}

	userURL := strings.TrimRight(a.cfg.IdentityProviderURL, "/") + "/auth/v1/user"
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, userURL, nil)
	if err != nil {
		return "", ErrUnauthorized
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.cfg.ServiceKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn().Err(err).Msg("identity provider request failed")
		return "", ErrUnauthorized
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrUnauthorized
	}

	var user struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", ErrUnauthorized
	}

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, ok := a.allowList[email]; !ok {
		return "", ErrNotAllowed
	}
	return email, nil
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
