package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/service"
)

type mockUserRepo struct {
	nextID       int64
	usersByID    map[int64]domain.User
	usersByEmail map[string]int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[int64]domain.User),
		usersByEmail: make(map[string]int64),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now().UTC()
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return user, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func setupUserRouter(userSvc *service.UserService, jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUserHandler(zap.NewNop(), userSvc, jwtSvc, false)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.RefreshToken)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/whoami", JWTAuthMiddleware(jwtSvc), h.WhoAmI)
	return r
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode detail: %v (body %s)", err, rec.Body.String())
	}
	return body.Detail
}

func TestUserHandlerRegister(t *testing.T) {
	repo := newMockUserRepo()
	r := setupUserRouter(service.NewUserService(zap.NewNop(), repo, nil), newTestJWT())

	rec := performRequest(r, http.MethodPost, "/auth/register", map[string]string{
		"email":    "ana@example.com",
		"password": "secreto1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var user domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.ID != 1 || user.Role != domain.RoleOperator {
		t.Fatalf("unexpected user %+v", user)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("hashed")) || bytes.Contains(rec.Body.Bytes(), []byte("$2a$")) {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/auth/register", map[string]string{
		"email":    "ana@example.com",
		"password": "secreto1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != service.ErrEmailTaken.Error() {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestUserHandlerLoginAndRefresh(t *testing.T) {
	repo := newMockUserRepo()
	userSvc := service.NewUserService(zap.NewNop(), repo, nil)
	jwtSvc := newTestJWT()
	r := setupUserRouter(userSvc, jwtSvc)

	if _, err := userSvc.Register(context.Background(), "ana@example.com", "secreto1", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec := performRequest(r, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "secreto1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if login.AccessToken == "" || login.TokenType != "bearer" || login.User.Email != "ana@example.com" {
		t.Fatalf("unexpected login response %+v", login)
	}
	if login.ExpiresAt <= time.Now().Unix() {
		t.Fatalf("expires_at should be in the future, got %d", login.ExpiresAt)
	}

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == refreshCookieName {
			cookie = ck
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != login.RefreshToken {
		t.Fatalf("expected HttpOnly refresh cookie, got %+v", cookie)
	}

	// whoami con el access token
	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	who := httptest.NewRecorder()
	r.ServeHTTP(who, req)
	if who.Code != http.StatusOK {
		t.Fatalf("whoami expected 200, got %d", who.Code)
	}

	// refresh desde la cookie, sin cuerpo
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)
	refreshed := httptest.NewRecorder()
	r.ServeHTTP(refreshed, req)
	if refreshed.Code != http.StatusOK {
		t.Fatalf("refresh expected 200, got %d: %s", refreshed.Code, refreshed.Body.String())
	}

	// el token viejo quedó revocado
	rec = performRequest(r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": login.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rotated token, got %d", rec.Code)
	}
}

func TestUserHandlerLogin_InvalidCredentials(t *testing.T) {
	repo := newMockUserRepo()
	userSvc := service.NewUserService(zap.NewNop(), repo, nil)
	r := setupUserRouter(userSvc, newTestJWT())

	rec := performRequest(r, http.MethodPost, "/auth/login", map[string]string{
		"email":    "nadie@example.com",
		"password": "secreto1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Invalid credentials" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestUserHandlerLogin_RateLimited(t *testing.T) {
	repo := newMockUserRepo()
	userSvc := service.NewUserService(zap.NewNop(), repo, service.NewRateLimiter(time.Minute, 2))
	r := setupUserRouter(userSvc, newTestJWT())

	body := map[string]string{"email": "ana@example.com", "password": "mal"}
	for i := 0; i < 2; i++ {
		performRequest(r, http.MethodPost, "/auth/login", body)
	}
	rec := performRequest(r, http.MethodPost, "/auth/login", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestUserHandlerLogout(t *testing.T) {
	repo := newMockUserRepo()
	userSvc := service.NewUserService(zap.NewNop(), repo, nil)
	jwtSvc := newTestJWT()
	r := setupUserRouter(userSvc, jwtSvc)

	pair, err := jwtSvc.GeneratePair(domain.User{ID: 9, Email: "a@b.com"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	rec := performRequest(r, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": pair.RefreshToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, err := jwtSvc.RefreshPair(pair.RefreshToken); err == nil {
		t.Fatalf("expected refresh token to be revoked")
	}
}
