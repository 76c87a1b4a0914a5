package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/modulus-erp/modulus-erp/internal/auth"
	"github.com/modulus-erp/modulus-erp/internal/shared"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func newStubRepo(user *auth.User) *stubRepo {
	return &stubRepo{user: user, sessions: make(map[string]int64)}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return nil
}

type countingLoginRecorder struct {
	success int
	failure int
}

func (r *countingLoginRecorder) ObserveLogin(ok bool) {
	if ok {
		r.success++
	} else {
		r.failure++
	}
}

func newTestRouter(t *testing.T, repo auth.Repository, recorder auth.LoginRecorder) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)

	service := auth.NewService(repo)
	provider := auth.NewStoreProvider(sessionManager, service, nil)
	coordinator := auth.NewCoordinator(provider, nil)
	tokens := auth.NewTokenIssuer("token-secret", time.Hour)
	handler := auth.NewHandler(nil, service, coordinator, tokens, sessionManager)
	if recorder != nil {
		handler = handler.WithRecorder(recorder)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			wrapped := &commitWriter{ResponseWriter: w, commit: func() {
				if err := sessionManager.Commit(ctx, w, req, sess); err != nil {
					t.Errorf("commit session: %v", err)
				}
			}}
			next.ServeHTTP(wrapped, req.WithContext(ctx))
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r, sessionManager
}

// commitWriter persists the session right before the first header write, the
// same ordering the production middleware uses.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	done   bool
}

func (w *commitWriter) WriteHeader(code int) {
	if !w.done {
		w.done = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.done {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 7, Email: "user@example.com", PasswordHash: string(hashed), Role: "regular", IsActive: true}
}

func TestLoginSucceeds(t *testing.T) {
	repo := newStubRepo(activeUser(t, "correct-password"))
	router, _ := newTestRouter(t, repo, nil)

	body := `{"email":"user@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		MFARequired bool `json:"mfa_required"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatalf("expected an access token")
	}
	if payload.User.Email != "user@example.com" || payload.User.Role != "regular" {
		t.Fatalf("unexpected user payload: %+v", payload.User)
	}
	if payload.MFARequired {
		t.Fatalf("no factor enrolled, MFA must not be required")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected one registered session, got %d", len(repo.sessions))
	}

	cookies := res.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == "test_session" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie to be set")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router, _ := newTestRouter(t, newStubRepo(activeUser(t, "correct-password")), nil)

	body := `{"email":"user@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := activeUser(t, "correct-password")
	user.IsActive = false
	router, _ := newTestRouter(t, newStubRepo(user), nil)

	body := `{"email":"user@example.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginValidatesPayload(t *testing.T) {
	router, _ := newTestRouter(t, newStubRepo(activeUser(t, "correct-password")), nil)

	body := `{"email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestLoginRecordsOutcomes(t *testing.T) {
	recorder := &countingLoginRecorder{}
	router, _ := newTestRouter(t, newStubRepo(activeUser(t, "correct-password")), recorder)

	post := func(body string) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	post(`{"email":"user@example.com","password":"correct-password"}`)
	post(`{"email":"user@example.com","password":"wrong-password"}`)
	post(`{"email":"user@example.com","password":"wrong-password"}`)

	if recorder.success != 1 {
		t.Fatalf("success count = %d, want 1", recorder.success)
	}
	if recorder.failure != 2 {
		t.Fatalf("failure count = %d, want 2", recorder.failure)
	}
}

func TestSessionEndpointAnonymousWithoutCookie(t *testing.T) {
	router, _ := newTestRouter(t, newStubRepo(nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "anonymous" {
		t.Fatalf("status = %s, want anonymous", payload.Status)
	}
}

func TestLogoutRedirectsToLanding(t *testing.T) {
	repo := newStubRepo(activeUser(t, "correct-password"))
	router, _ := newTestRouter(t, repo, nil)

	loginBody := `{"email":"user@example.com","password":"correct-password"}`
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(loginBody))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, loginReq)
	if loginRes.Code != http.StatusOK {
		t.Fatalf("login failed: %d", loginRes.Code)
	}

	logoutReq := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range loginRes.Result().Cookies() {
		logoutReq.AddCookie(c)
	}
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logoutReq)

	if logoutRes.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", logoutRes.Code)
	}
	var payload struct {
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(logoutRes.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Redirect != auth.LandingPath {
		t.Fatalf("redirect = %s, want %s", payload.Redirect, auth.LandingPath)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("expected session row removed, got %d", len(repo.sessions))
	}
}
