package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/service"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/store/sqlite"
	"github.com/recipebook/recipebook-server/internal/validation"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testEnvelope is the success envelope with typed data.
type testEnvelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// testErrorEnvelope is the error envelope.
type testErrorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

// testServer wraps the API server with direct store access.
type testServer struct {
	*Server
	api   humatest.TestAPI
	store *store.Store
}

// setupTestServer builds a server over an in-memory store, a temporary
// audit database and an in-memory search index.
func setupTestServer(t *testing.T, opts ...func(*Options)) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.New("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	audit, err := sqlite.Open(filepath.Join(t.TempDir(), "audit.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = audit.Close() })

	index, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	st.AddRecipeIndexer(index)

	tokens, err := auth.NewTokenService(testKeyHex, 15*time.Minute)
	require.NoError(t, err)

	v := validation.New()
	sharing := service.NewSharingService(st, st, nil, v, logger)
	engagement := service.NewEngagementService(st, st, logger)
	services := &Services{
		Auth: service.NewAuthService(st, tokens, nil, sharing, nil, v, config.AuthConfig{
			VerificationDuration: 24 * time.Hour,
			ResetDuration:        time.Hour,
		}, logger),
		Recipe:     service.NewRecipeService(st, st, engagement, v, logger),
		Sharing:    sharing,
		Engagement: engagement,
		Comment:    service.NewCommentService(st, st, nil, v, logger),
		Discovery:  service.NewDiscoveryService(st, st, index, nil, logger),
		Social:     service.NewSocialService(st, st, nil, logger),
		Collection: service.NewCollectionService(st, st, v, logger),
		Profile:    service.NewProfileService(st, st, v, logger),
		Admin:      service.NewAdminService(st, st, audit, logger),
	}

	o := Options{
		AuthRequestsPerMinute: 1000,
		AuthBurst:             1000,
		Health: map[string]HealthCheck{
			"store": func(context.Context) error { return nil },
		},
	}
	for _, fn := range opts {
		fn(&o)
	}

	s := NewServer(services, o, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		store:  st,
	}
}

// signup registers an account and returns its token and user.
func (ts *testServer) signup(t *testing.T, name, email string) (string, *domain.User) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     name,
		"email":    email,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decode[service.AuthResponse](t, resp.Body.Bytes())
	require.NotEmpty(t, env.Data.Token)
	return env.Data.Token, env.Data.User
}

// makeAdmin promotes a stored user directly.
func (ts *testServer) makeAdmin(t *testing.T, userID string) {
	t.Helper()
	_, err := ts.store.MutateUser(context.Background(), userID, func(u *domain.User) error {
		u.Role = domain.RoleAdmin
		return nil
	})
	require.NoError(t, err)
}

// createRecipe posts a recipe and returns it.
func (ts *testServer) createRecipe(t *testing.T, token, title, visibility string) *domain.Recipe {
	t.Helper()

	body := map[string]any{
		"title":        title,
		"ingredients":  []string{"2 eggs", "flour"},
		"instructions": []string{"whisk", "bake"},
		"category":     "Dessert",
		"servings":     4,
	}
	if visibility != "" {
		body["visibility"] = visibility
	}
	resp := ts.api.Post("/api/v1/recipes", bearer(token), body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[*domain.Recipe](t, resp.Body.Bytes()).Data
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	require.True(t, env.Success, string(body))
	return env
}

func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()
	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	require.False(t, env.Success, string(body))
	return env
}

// failing is a health check that always fails.
func failing(context.Context) error { return errors.New("connection refused") }
