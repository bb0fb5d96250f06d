package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"roundup/internal/config"
	"roundup/internal/db"
	"roundup/internal/domain"
	"roundup/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	redis  *miniredis.Miniredis
	events *events.Recorder
	cfg    *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "development",
		DBDriver:            "sqlite",
		JWTSecret:           "test-access-secret",
		JWTRefreshSecret:    "test-refresh-secret",
		JWTExpiresIn:        15 * time.Minute,
		JWTRefreshExpiresIn: 168 * time.Hour,
		OTPTTL:              10 * time.Minute,
		FrontendURL:         "http://localhost:5173",
		RateLimitWindow:     15 * time.Minute,
		RateLimitMax:        10000,
		AuthRateLimitMax:    10000,
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "api.db")
	for _, m := range mutate {
		m(cfg)
	}
	gdb, err := db.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	rec := &events.Recorder{}
	router := NewRouter(Deps{DB: gdb, Redis: rdb, Config: cfg, Publisher: rec})
	return &testServer{router: router, db: gdb, redis: mr, events: rec, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signUp registers and verifies a user, returning its access token, refresh token and ID
func (s *testServer) signUp(t *testing.T, email string) (access, refresh, userID string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "Secret123", "firstName": "Dana", "lastName": "Levi",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	otp := decode(t, w)["otp"].(string)

	w = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", gin.H{"email": email, "code": otp, "type": "verify"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	user := body["user"].(map[string]any)
	return body["accessToken"].(string), body["refreshToken"].(string), user["id"].(string)
}

// fundWallet sets a user's wallet balance directly
func (s *testServer) fundWallet(t *testing.T, userID string, amount float64) {
	t.Helper()
	require.NoError(t, s.db.Model(&domain.Wallet{}).Where("user_id = ?", userID).
		Update("total_balance", amount).Error)
}

func (s *testServer) addCard(t *testing.T, token string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/cards", token, gin.H{"nickname": "Daily", "lastFour": "4242"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["card"].(map[string]any)["id"].(string)
}
