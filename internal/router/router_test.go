package router

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"arcstore-api/internal/cache"
	"arcstore-api/internal/handler"
	"arcstore-api/internal/lock"
	"arcstore-api/internal/middleware"
	"arcstore-api/internal/model"
	"arcstore-api/internal/repository"
	"arcstore-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testLoginKey = "admin-key"

type testServer struct {
	srv     *httptest.Server
	game    *repository.SQLiteGameRepository
	catalog *repository.SQLCatalogRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	log := zap.NewNop()

	catalog, err := repository.NewCatalogRepository("sqlite", filepath.Join(dir, "user.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })
	game, err := repository.NewSQLiteGameRepository(filepath.Join(dir, "game.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { game.Close() })
	events, err := repository.NewSQLiteEventRepository(filepath.Join(dir, "event.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	c := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { c.Close() })

	tokens := service.NewTokenService(c, time.Hour, log)
	accounts := service.NewAccountService(game)
	store := service.NewStoreService(catalog, game, lock.NewMemoryLocker(), c, service.StoreConfig{}, log)
	lottery := service.NewLotteryService(events, game, log)
	reaper := service.NewReaperScheduler(game, service.ReaperConfig{}, log)

	r := New(Config{
		Handler:        handler.New("arcstore-api", "test", map[string]handler.Pinger{"game_db": game, "catalog_db": catalog}),
		StoreHandler:   handler.NewStoreHandler(store, log),
		AccountHandler: handler.NewAccountHandler(accounts, store, log),
		AuthHandler:    handler.NewAuthHandler(accounts, tokens, log),
		LotteryHandler: handler.NewLotteryHandler(lottery, log),
		AdminHandler:   handler.NewAdminHandler(game, reaper, "sqlite", "memory", log),
		Tokens:         tokens,
		LoginKey:       testLoginKey,
		RateLimiter:    middleware.NewRateLimiter(1000, 1000, log),
		Logger:         log,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, game: game, catalog: catalog}
}

func (s *testServer) addUser(t *testing.T, name, password string, ticket int64) {
	t.Helper()
	sum := sha256.Sum256([]byte(password))
	_, err := s.game.DB().Exec(`INSERT INTO user (name, password, ticket) VALUES (?, ?, ?)`, name, hex.EncodeToString(sum[:]), ticket)
	require.NoError(t, err)
}

func (s *testServer) do(t *testing.T, method, path string, headers map[string]string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, path, name, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, path, nil, map[string]string{"name": name, "password": password})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	return data["token"].(string)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = s.do(t, http.MethodGet, "/api/v1/ready", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]interface{})["ready"])

	status, _ = s.do(t, http.MethodGet, "/api/status", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "secret", 100)

	status, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"name": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"name": "alice"})
	assert.Equal(t, http.StatusBadRequest, status)

	token := s.login(t, "/api/v1/auth/login", "alice", "secret")
	assert.Contains(t, token, service.SessionTokenPrefix)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/revoke", map[string]string{middleware.SessionHeader: token}, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/v1/lottery", map[string]string{middleware.SessionHeader: token}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStoreRoutesRequirePageIdentity(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "secret", 100)
	session := s.login(t, "/api/v1/auth/login", "alice", "secret")

	status, _ := s.do(t, http.MethodPost, "/api/v1/store/purchase", nil, map[string]int64{"product_id": 1, "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/store/purchase",
		map[string]string{middleware.PageHeader: session}, map[string]int64{"product_id": 1, "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, status, "a session token is not a page identity")
}

func TestPurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "secret", 100)
	item := &model.StoreItem{Name: "Core", Price: 10, Stock: 5, ItemID: "core_generic", ItemType: "core"}
	require.NoError(t, s.catalog.CreateItem(context.Background(), item))

	page := s.login(t, "/api/v1/auth/page", "alice", "secret")
	auth := map[string]string{middleware.PageHeader: page}

	status, body := s.do(t, http.MethodGet, "/api/v1/store/items", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodPost, "/api/v1/store/purchase", auth, map[string]int64{"product_id": item.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(20), body["total_price"])

	status, body = s.do(t, http.MethodPost, "/api/v1/store/purchase", auth, map[string]int64{"product_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(service.CodePendingOrderExists), body["code"])

	status, body = s.do(t, http.MethodGet, "/api/v1/me", auth, nil)
	require.Equal(t, http.StatusOK, status)
	me := body["data"].(map[string]interface{})
	assert.Equal(t, float64(80), me["ticket"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/store/purchase", auth, "not json")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGiftDisabledByDefault(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "secret", 100)
	page := s.login(t, "/api/v1/auth/page", "alice", "secret")

	status, body := s.do(t, http.MethodPost, "/api/v1/store/gift",
		map[string]string{middleware.PageHeader: page},
		map[string]interface{}{"product_id": 1, "recipient": "bob", "quantity": 1})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "feature disabled", body["message"])
}

func TestBannerRoute(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "secret", 0)
	_, err := s.game.DB().Exec(`INSERT INTO user_item (user_id, item_id, type, amount) VALUES
		(1, 'course_banner_1', 'course_banner', 1), (1, '_course_banner_2', '_course_banner', 1)`)
	require.NoError(t, err)

	page := s.login(t, "/api/v1/auth/page", "alice", "secret")
	auth := map[string]string{middleware.PageHeader: page}

	status, _ := s.do(t, http.MethodPost, "/api/v1/account/banner", nil, map[string]string{"banner_id": "course_banner_2"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/api/v1/account/banner", auth, map[string]string{"banner_id": "_course_banner_2"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = s.do(t, http.MethodPost, "/api/v1/account/banner", auth, map[string]string{"banner_id": "course_banner_7"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(service.CodeBannerNotFound), body["code"])

	status, body = s.do(t, http.MethodGet, "/api/v1/me", auth, nil)
	require.Equal(t, http.StatusOK, status)
	banners := body["data"].(map[string]interface{})["banner_items"].([]interface{})
	require.Len(t, banners, 2)
	assert.Equal(t, map[string]interface{}{"item_id": "_course_banner_1", "type": "_course_banner"}, banners[0])
	assert.Equal(t, map[string]interface{}{"item_id": "course_banner_2", "type": "course_banner"}, banners[1])
}

func TestLotteryRoutes(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "secret", 0)
	session := s.login(t, "/api/v1/auth/login", "alice", "secret")
	auth := map[string]string{middleware.SessionHeader: session}

	status, body := s.do(t, http.MethodPost, "/api/v1/lottery/draw", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["prize"])

	status, body = s.do(t, http.MethodPost, "/api/v1/lottery/draw", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(service.CodeAlreadyDrawn), body["code"])

	status, body = s.do(t, http.MethodGet, "/api/v1/lottery", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]interface{})["has_drawn"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	auth := map[string]string{middleware.LoginKeyHeader: testLoginKey}
	status, body := s.do(t, http.MethodGet, "/api/v1/admin/stats", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sqlite", body["data"].(map[string]interface{})["catalog_db_type"])

	status, body = s.do(t, http.MethodPost, "/api/v1/admin/reap", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["removed"])
}
