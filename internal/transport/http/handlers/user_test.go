package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

func newUserRouter(t *testing.T, env *testEnv, session *domain.Session) *gin.Engine {
	t.Helper()

	handler := NewUserHandler(env.registry)
	r := gin.New()
	r.Use(withSession(session))
	r.POST("/rpc/register", handler.Register)
	r.PUT("/rpc/register", handler.Update)
	return r
}

func TestRegisterCreatesUser(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newUserRouter(t, env, session)

	req := httptest.NewRequest(http.MethodPost, "/rpc/register", strings.NewReader(`{"title":"Dr."}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected new user id")
	}

	user, err := env.users.GetByID(req.Context(), resp.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.ExtID != session.ExtID || user.Name != session.UserName {
		t.Fatalf("registry record must come from the session, got %+v", user)
	}
	if user.Title == nil || *user.Title != "Dr." {
		t.Fatalf("title not stored: %+v", user)
	}
	if len(env.events.registered) != 1 {
		t.Fatalf("expected one registration event, got %d", len(env.events.registered))
	}
}

func TestRegisterTwice(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newUserRouter(t, env, session)

	first := httptest.NewRequest(http.MethodPost, "/rpc/register", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first registration failed: %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/rpc/register", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRegisterWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	r := newUserRouter(t, env, nil)

	req := httptest.NewRequest(http.MethodPost, "/rpc/register", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUpdateReconfirmsUser(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newUserRouter(t, env, session)

	register := httptest.NewRequest(http.MethodPost, "/rpc/register", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, register)
	if rec.Code != http.StatusCreated {
		t.Fatalf("registration failed: %d", rec.Code)
	}

	session.UserEmail = "john@new-home.org"
	update := httptest.NewRequest(http.MethodPut, "/rpc/register", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, update)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	user, err := env.users.GetByID(update.Context(), *session.UserID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.Email != "john@new-home.org" {
		t.Fatalf("registry record not re-confirmed, got %+v", user)
	}
	if len(env.events.updated) != 1 {
		t.Fatalf("expected one update event, got %d", len(env.events.updated))
	}
}

func TestUpdateRequiresRegistration(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newUserRouter(t, env, session)

	update := httptest.NewRequest(http.MethodPut, "/rpc/register", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, update)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
