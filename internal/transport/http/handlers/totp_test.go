package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

func newTOTPRouter(t *testing.T, env *testEnv, session *domain.Session) *gin.Engine {
	t.Helper()

	handler := NewTOTPHandler(env.totp)
	r := gin.New()
	r.Use(withSession(session))
	r.POST("/rpc/totp-token", handler.CreateToken)
	r.POST("/rpc/verify-totp", handler.VerifyCode)
	return r
}

func loginSession(t *testing.T, env *testEnv) *domain.Session {
	t.Helper()

	session, _, err := env.sessions.Login(context.Background(), nil, "access-token")
	if err != nil {
		t.Fatalf("seed login: %v", err)
	}
	return session
}

func TestCreateTokenReturnsURI(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newTOTPRouter(t, env, session)

	req := httptest.NewRequest(http.MethodPost, "/rpc/totp-token", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp TOTPTokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !strings.HasPrefix(resp.URI, "otpauth://totp/") {
		t.Fatalf("expected provisioning uri, got %q", resp.URI)
	}
}

func TestCreateTokenRequiresForceToReplace(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newTOTPRouter(t, env, session)

	first := httptest.NewRequest(http.MethodPost, "/rpc/totp-token", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("enrolment failed: %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/rpc/totp-token", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("re-enrolment without force must conflict, got %d", rec.Code)
	}

	forced := httptest.NewRequest(http.MethodPost, "/rpc/totp-token", strings.NewReader(`{"force":true}`))
	forced.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, forced)
	if rec.Code != http.StatusOK {
		t.Fatalf("forced re-enrolment must succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTokenWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	r := newTOTPRouter(t, env, nil)

	req := httptest.NewRequest(http.MethodPost, "/rpc/totp-token", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestVerifyCodeWrongCode(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newTOTPRouter(t, env, session)

	enroll := httptest.NewRequest(http.MethodPost, "/rpc/totp-token", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, enroll)
	if rec.Code != http.StatusOK {
		t.Fatalf("enrolment failed: %d", rec.Code)
	}

	verify := httptest.NewRequest(http.MethodPost, "/rpc/verify-totp", strings.NewReader(`{"code":"000000"}`))
	verify.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, verify)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong code, got %d", rec.Code)
	}
	if session.State != domain.SessionStateRegistered {
		t.Fatalf("failed verification must not authenticate, state %s", session.State)
	}
}

func TestVerifyCodeWithoutEnrolment(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newTOTPRouter(t, env, session)

	verify := httptest.NewRequest(http.MethodPost, "/rpc/verify-totp", strings.NewReader(`{"code":"123456"}`))
	verify.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, verify)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid TOTP code") {
		t.Fatalf("missing enrolment must not be distinguishable, got %s", rec.Body.String())
	}
}

func TestVerifyCodeMissingPayload(t *testing.T) {
	env := newTestEnv(t)
	session := loginSession(t, env)
	r := newTOTPRouter(t, env, session)

	verify := httptest.NewRequest(http.MethodPost, "/rpc/verify-totp", strings.NewReader(`{}`))
	verify.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, verify)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing code, got %d", rec.Code)
	}
}
