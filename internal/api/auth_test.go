package api

import (
	"net/http"
	"testing"

	"villaalcielo/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "site-key", Extra: "site-extra", Name: "website", Permissions: []string{"read:availability", "write:reservations", "read:reservations"}},
				{Key: "admin-key", Extra: "admin-extra", Name: "owners", Permissions: []string{"admin:reservations", "read:availability"}},
			},
		},
	}
}

func TestAuthMissingHeaders(t *testing.T) {
	srv, _ := setupServer(t, authConfig())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidKey(t *testing.T) {
	srv, _ := setupServer(t, authConfig())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, map[string]string{
		"x-api-key":   "wrong",
		"x-api-extra": "site-extra",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidExtra(t *testing.T) {
	srv, _ := setupServer(t, authConfig())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, map[string]string{
		"x-api-key":   "site-key",
		"x-api-extra": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthPermissions(t *testing.T) {
	srv, _ := setupServer(t, authConfig())
	site := map[string]string{"x-api-key": "site-key", "x-api-extra": "site-extra"}
	admin := map[string]string{"x-api-key": "admin-key", "x-api-extra": "admin-extra"}

	// The site key can read availability but not confirm reservations.
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, site)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/reservations/1/confirm", nil, site)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The admin key gets past the permission check; 404 means the handler ran.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/reservations/999/confirm", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The admin key lacks write:reservations.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/reservations", createBody(futureFriday(), futureFriday().AddDate(0, 0, 1)), admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthzSkipsAuth(t *testing.T) {
	srv, _ := setupServer(t, authConfig())

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPerKeyRateLimit(t *testing.T) {
	cfg := authConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.0001, Burst: 2}
	srv, _ := setupServer(t, cfg)
	site := map[string]string{"x-api-key": "site-key", "x-api-extra": "site-extra"}

	for i := 0; i < 2; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, site)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, site)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The other key has its own bucket.
	admin := map[string]string{"x-api-key": "admin-key", "x-api-extra": "admin-extra"}
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/cabins", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}
