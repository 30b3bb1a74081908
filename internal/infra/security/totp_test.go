package security

import (
	"strings"
	"testing"
	"time"
)

func newHandler(t *testing.T) *TOTPHandler {
	t.Helper()

	key, err := RandomEncryptionKey()
	if err != nil {
		t.Fatalf("RandomEncryptionKey: %v", err)
	}

	handler, err := NewTOTPHandler(TOTPConfig{
		Issuer:        "Test Gateway",
		Digits:        6,
		Interval:      30 * time.Second,
		Tolerance:     1,
		MaxAttempts:   3,
		SecretSize:    32,
		EncryptionKey: key,
	})
	if err != nil {
		t.Fatalf("NewTOTPHandler: %v", err)
	}
	return handler
}

func TestGenerateTokenEncryptsSecret(t *testing.T) {
	handler := newHandler(t)

	token, uri, err := handler.GenerateToken("john@aai.org")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning uri: %q", uri)
	}
	if token.Counter != -1 || token.Attempts != 0 {
		t.Fatalf("unexpected fresh token counters: %+v", token)
	}
	if strings.Contains(uri, token.Secret) {
		t.Fatal("stored secret must not equal the provisioned secret")
	}

	secret, err := handler.secret(token)
	if err != nil {
		t.Fatalf("secret returned error: %v", err)
	}
	if !strings.Contains(uri, secret) {
		t.Fatal("decrypted secret must match the provisioned one")
	}
}

func TestVerifyCodeRoundTrip(t *testing.T) {
	handler := newHandler(t)
	now := time.Now().UTC()

	token, _, err := handler.GenerateToken("john@aai.org")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	code, err := handler.GenerateCode(token, now)
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}

	ok, err := handler.VerifyCode(token, code, now)
	if err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected code to verify")
	}
	if token.Attempts != -1 {
		t.Fatalf("verified token must be marked, got attempts %d", token.Attempts)
	}
}

func TestVerifyCodeRejectsReplay(t *testing.T) {
	handler := newHandler(t)
	now := time.Now().UTC()

	token, _, err := handler.GenerateToken("john@aai.org")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	code, err := handler.GenerateCode(token, now)
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}

	if ok, _ := handler.VerifyCode(token, code, now); !ok {
		t.Fatal("first verification must succeed")
	}
	if ok, _ := handler.VerifyCode(token, code, now); ok {
		t.Fatal("replayed code within the same time step must be rejected")
	}
}

func TestVerifyCodeLimitsAttempts(t *testing.T) {
	handler := newHandler(t)
	now := time.Now().UTC()

	token, _, err := handler.GenerateToken("john@aai.org")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if ok, err := handler.VerifyCode(token, "000000", now); err != nil || ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
	if token.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", token.Attempts)
	}

	// even the valid code is rejected once the limit is reached
	code, err := handler.GenerateCode(token, now)
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}
	if ok, _ := handler.VerifyCode(token, code, now); ok {
		t.Fatal("attempt limit must lock out the current time step")
	}

	// the next time step resets the attempt budget
	later := now.Add(31 * time.Second)
	code, err = handler.GenerateCode(token, later)
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}
	if ok, _ := handler.VerifyCode(token, code, later); !ok {
		t.Fatal("fresh time step must accept a valid code again")
	}
}

func TestVerifyCodeIgnoresMalformedInput(t *testing.T) {
	handler := newHandler(t)
	now := time.Now().UTC()

	token, _, err := handler.GenerateToken("john@aai.org")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	for _, code := range []string{"", "12345", "1234567", "12345a"} {
		if ok, err := handler.VerifyCode(token, code, now); err != nil || ok {
			t.Fatalf("code %q: ok=%v err=%v", code, ok, err)
		}
	}
	if token.Attempts != 0 {
		t.Fatalf("malformed codes must not consume attempts, got %d", token.Attempts)
	}
}

func TestVerifyCodeWithoutToken(t *testing.T) {
	handler := newHandler(t)

	if _, err := handler.VerifyCode(nil, "123456", time.Now()); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestPassphraseDerivedKeyIsStable(t *testing.T) {
	cfg := TOTPConfig{Issuer: "Test", EncryptionKey: "correct horse battery staple"}

	first, err := NewTOTPHandler(cfg)
	if err != nil {
		t.Fatalf("NewTOTPHandler: %v", err)
	}
	second, err := NewTOTPHandler(cfg)
	if err != nil {
		t.Fatalf("NewTOTPHandler: %v", err)
	}

	token, _, err := first.GenerateToken("john@aai.org")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	// a handler built from the same passphrase can decrypt the secret
	if _, err := second.secret(token); err != nil {
		t.Fatalf("secret returned error: %v", err)
	}
}
