package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *nopMailer) SendMail(context.Context, notifications.Message) error {
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	return nil
}

type app struct {
	router http.Handler
	store  *memory.Store
	hasher *security.Hasher
	mailer *nopMailer
}

func newApp(t *testing.T) *app {
	t.Helper()

	key, err := auth.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	hasher := security.NewHasher(bcrypt.MinCost)
	engine := otp.NewEngine("hash-secret")
	manager := auth.NewManager(auth.ManagerConfig{PrivateKey: key, KeyID: "kid-1", RefreshSecret: "refresh-secret"})
	mailer := &nopMailer{}
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	cfg := service.RegistrarConfig{ExposeOTP: true, SyncMail: true}

	issuer := service.NewTokenIssuer(store.RefreshTokens(), manager, log)

	router := httpx.NewRouter(httpx.RouterConfig{Env: "test"}, httpx.Deps{
		Log:      log,
		Prom:     prom,
		Gatherer: reg,
		Gate:     middlewares.NewAuthMiddleware(manager, manager, issuer, log),
		Auth: handlers.NewAuthHandler(
			service.NewRegistrar(store.Users(), hasher, engine, issuer, mailer, prom, log, cfg),
			service.NewAuthenticator(store.Users(), hasher, issuer, prom, log),
			service.NewPasswordReset(store.Users(), hasher, engine, mailer, prom, log, cfg),
			handlers.CookieConfig{Domain: "localhost"},
		),
		Tenants: handlers.NewTenantsHandler(store.Tenants()),
		Users:   handlers.NewUsersHandler(service.NewAccounts(store.Users(), store.Tenants(), hasher), store.Users()),
		Health:  handlers.NewHealthHandler(),
		Keys:    manager,
	})

	return &app{router: router, store: store, hasher: hasher, mailer: mailer}
}

func (a *app) do(method, path string, body any, cookies []*http.Cookie, header ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) register(t *testing.T, email string) []*http.Cookie {
	t.Helper()

	w := a.do(http.MethodPost, "/api/auth/register/send-otp", map[string]string{
		"fullName": "Ann", "email": email, "password": "secret12", "confirmPassword": "secret12",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send-otp got %d body=%s", w.Code, w.Body.String())
	}

	var sent struct {
		HashOtp string `json:"hashOtp"`
		Otp     int    `json:"otp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode send-otp: %v", err)
	}

	w = a.do(http.MethodPost, "/api/auth/register/verify-otp", map[string]any{
		"fullName": "Ann", "email": email, "hashOtp": sent.HashOtp, "otp": sent.Otp,
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("verify-otp got %d body=%s", w.Code, w.Body.String())
	}

	return w.Result().Cookies()
}

func (a *app) login(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()

	w := a.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login got %d body=%s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func cookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterSelfLogoutReplay(t *testing.T) {
	a := newApp(t)

	cookies := a.register(t, "ann@example.com")
	if a.mailer.sent != 1 {
		t.Fatalf("expected one otp mail, got %d", a.mailer.sent)
	}

	w := a.do(http.MethodGet, "/api/auth/self", nil, cookies)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"role":"customer"`) {
		t.Fatalf("self got %d body=%s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/auth/logout", nil, cookies)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"user":null}` {
		t.Fatalf("logout got %d body=%s", w.Code, w.Body.String())
	}

	// the old refresh token still has a valid signature but no record
	w = a.do(http.MethodGet, "/api/auth/refresh", nil, []*http.Cookie{cookie(cookies, middlewares.RefreshCookie)})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh got %d want 401", w.Code)
	}
}

func TestSelfWithoutCredentials(t *testing.T) {
	a := newApp(t)

	w := a.do(http.MethodGet, "/api/auth/self", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d want 401", w.Code)
	}
}

func TestSelfWithBearerHeaderAndRefreshCookie(t *testing.T) {
	a := newApp(t)

	cookies := a.register(t, "ann@example.com")
	access := cookie(cookies, middlewares.AccessCookie)

	w := a.do(http.MethodGet, "/api/auth/self", nil,
		[]*http.Cookie{cookie(cookies, middlewares.RefreshCookie)},
		"Authorization", "Bearer "+access.Value)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRefreshRotates(t *testing.T) {
	a := newApp(t)

	cookies := a.register(t, "ann@example.com")
	oldRefresh := cookie(cookies, middlewares.RefreshCookie)

	w := a.do(http.MethodGet, "/api/auth/refresh", nil, []*http.Cookie{oldRefresh})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh got %d body=%s", w.Code, w.Body.String())
	}

	newRefresh := cookie(w.Result().Cookies(), middlewares.RefreshCookie)
	if newRefresh == nil || newRefresh.Value == oldRefresh.Value {
		t.Fatalf("refresh cookie not rotated")
	}

	if w := a.do(http.MethodGet, "/api/auth/refresh", nil, []*http.Cookie{oldRefresh}); w.Code != http.StatusUnauthorized {
		t.Fatalf("rotated-out token got %d want 401", w.Code)
	}
	if w := a.do(http.MethodGet, "/api/auth/refresh", nil, []*http.Cookie{newRefresh}); w.Code != http.StatusOK {
		t.Fatalf("new token got %d want 200", w.Code)
	}
}

func TestLoginWhileLoggedIn(t *testing.T) {
	a := newApp(t)

	cookies := a.register(t, "ann@example.com")

	w := a.do(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ann@example.com", "password": "secret12"},
		[]*http.Cookie{cookie(cookies, middlewares.RefreshCookie)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", w.Code)
	}
}

func TestMalformedOtpWritesNothing(t *testing.T) {
	a := newApp(t)

	w := a.do(http.MethodPost, "/api/auth/register/verify-otp", map[string]any{
		"fullName": "Ann", "email": "ann@example.com", "hashOtp": "a#b", "otp": 1234,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", w.Code)
	}
	if n := a.store.Users().Count(); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
}

func TestAdminRoutes_RBAC(t *testing.T) {
	a := newApp(t)

	hash, err := a.hasher.Hash("adminpass1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	for _, u := range []user.CreateParams{
		{FullName: "Root", Email: "root@example.com", PasswordHash: hash, Role: user.RoleAdmin},
		{FullName: "Mia", Email: "mia@example.com", PasswordHash: hash, Role: user.RoleManager},
	} {
		if _, err := a.store.Users().Create(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	tenantBody := map[string]string{"name": "Acme", "address": "1 Long Street, Springfield"}

	manager := a.login(t, "mia@example.com", "adminpass1")
	if w := a.do(http.MethodPost, "/api/tenants", tenantBody, manager); w.Code != http.StatusForbidden {
		t.Fatalf("manager got %d want 403", w.Code)
	}

	admin := a.login(t, "root@example.com", "adminpass1")
	w := a.do(http.MethodPost, "/api/tenants", tenantBody, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin got %d want 201 body=%s", w.Code, w.Body.String())
	}

	var created struct {
		Tenant struct {
			ID int64 `json:"id"`
		} `json:"tenant"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = a.do(http.MethodPost, "/api/users", map[string]any{
		"fullName": "Max", "email": "max@example.com", "password": "secret123", "role": "manager", "tenantId": created.Tenant.ID,
	}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user got %d body=%s", w.Code, w.Body.String())
	}

	if w := a.do(http.MethodGet, "/api/users", nil, admin); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "max@example.com") {
		t.Fatalf("list users got %d body=%s", w.Code, w.Body.String())
	}
}

func TestJWKSAndMetrics(t *testing.T) {
	a := newApp(t)

	w := a.do(http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("jwks got %d", w.Code)
	}

	var set auth.JWKSet
	if err := json.Unmarshal(w.Body.Bytes(), &set); err != nil || len(set.Keys) != 1 || set.Keys[0].Kid != "kid-1" {
		t.Fatalf("unexpected key set %s err=%v", w.Body.String(), err)
	}

	w = a.do(http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "authhub_http_requests_total") {
		t.Fatalf("metrics missing http counters: %d", w.Code)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	a := newApp(t)

	w := a.do(http.MethodGet, "/nope", nil, nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "NotFoundError") {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
}
