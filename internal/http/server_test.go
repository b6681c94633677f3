package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-xp-backend/internal/common/config"
	"forum-xp-backend/internal/features/audit"
	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository/memory"
	progression "forum-xp-backend/internal/features/progression/service"
	roles "forum-xp-backend/internal/features/roles/service"
	"forum-xp-backend/internal/platform/chat"
)

const adminToken = "test-token"

func newTestServer(t *testing.T) (*Server, *progression.Ledger) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.AdminToken = adminToken
	cfg.Server.Origin = "http://localhost:3000"
	cfg.Bot.GuildID = "guild-1"

	table, err := models.NewThresholdTable(map[int]int64{1: 5, 2: 15, 3: 35})
	require.NoError(t, err)

	store := memory.New()
	ledger := progression.NewLedger(store, table)
	adapter := chat.NewMemoryAdapter()
	binding := models.NewRoleBinding(nil)
	reconciler := roles.NewReconciler(adapter, ledger, binding, audit.New(adapter, ""))

	return NewServer(cfg, ledger, reconciler, store), ledger
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReady(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, "/api/v1/users/u1/xp", tt.token, "")
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestAdminAuthDisabledWithoutToken(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.Server.AdminToken = ""

	w := do(t, s, http.MethodGet, "/api/v1/users/u1/xp", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUserXP(t *testing.T) {
	s, ledger := newTestServer(t)
	_, err := ledger.AddXP(context.Background(), "u1", 10)
	require.NoError(t, err)

	w := do(t, s, http.MethodGet, "/api/v1/users/u1/xp", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID      string `json:"user_id"`
		XP          int64  `json:"xp"`
		Level       int    `json:"level"`
		NextLevelXP int64  `json:"next_level_xp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.UserID)
	assert.Equal(t, int64(10), body.XP)
	assert.Equal(t, 1, body.Level)
	assert.Equal(t, int64(15), body.NextLevelXP)
}

func TestGetUserXPUnknown(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/users/ghost/xp", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		XP    int64 `json:"xp"`
		Level int   `json:"level"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(0), body.XP)
	assert.Equal(t, 0, body.Level)
}

func TestSetUserXP(t *testing.T) {
	s, ledger := newTestServer(t)

	w := do(t, s, http.MethodPut, "/api/v1/users/u1/xp", adminToken, `{"amount":20}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		XP    int64 `json:"xp"`
		Level int   `json:"level"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(20), body.XP)
	assert.Equal(t, 2, body.Level)

	info, err := ledger.GetLevel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), info.XP)
}

func TestSetUserXPRejectsNegative(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPut, "/api/v1/users/u1/xp", adminToken, `{"amount":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetUserXPRejectsBadBody(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPut, "/api/v1/users/u1/xp", adminToken, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
