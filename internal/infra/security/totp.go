package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

var (
	// ErrNoSecret is returned when a TOTP operation needs a secret that
	// was never enrolled.
	ErrNoSecret = errors.New("no TOTP secret enrolled")
	// ErrMalformedSecret indicates the stored secret could not be decrypted.
	ErrMalformedSecret = errors.New("malformed TOTP secret")
)

const (
	secretboxNonceSize = 24
	secretboxKeySize   = 32
)

// fixed argon2id salt for deriving the secretbox key from a passphrase
var totpKeySalt = []byte("auth-adapter/totp-secrets")

// TOTPConfig carries the parameters for TOTP generation and verification.
type TOTPConfig struct {
	Issuer        string
	Digits        int
	Interval      time.Duration
	Tolerance     uint
	MaxAttempts   int
	SecretSize    uint
	EncryptionKey string
}

// TOTPHandler generates enrolment secrets, builds provisioning URIs and
// verifies time-based codes. Secrets are encrypted at rest with NaCl
// secretbox under a key taken or derived from the configuration.
type TOTPHandler struct {
	issuer      string
	digits      otp.Digits
	period      uint
	skew        uint
	maxAttempts int
	secretSize  uint
	key         [secretboxKeySize]byte
}

// NewTOTPHandler builds a handler from the configuration. The encryption
// key may be a base64 encoded 32-byte key; any other non-empty value is
// treated as a passphrase and stretched with argon2id.
func NewTOTPHandler(cfg TOTPConfig) (*TOTPHandler, error) {
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("TOTP encryption key is missing")
	}

	digits := otp.DigitsSix
	if cfg.Digits == 8 {
		digits = otp.DigitsEight
	} else if cfg.Digits != 0 && cfg.Digits != 6 {
		return nil, fmt.Errorf("unsupported TOTP digit count: %d", cfg.Digits)
	}

	period := uint(30)
	if cfg.Interval > 0 {
		period = uint(cfg.Interval / time.Second)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	secretSize := cfg.SecretSize
	if secretSize == 0 {
		secretSize = 32
	}

	h := &TOTPHandler{
		issuer:      cfg.Issuer,
		digits:      digits,
		period:      period,
		skew:        cfg.Tolerance,
		maxAttempts: maxAttempts,
		secretSize:  secretSize,
	}

	if raw, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey); err == nil && len(raw) == secretboxKeySize {
		copy(h.key[:], raw)
	} else {
		derived := argon2.IDKey([]byte(cfg.EncryptionKey), totpKeySalt, 3, 64*1024, 4, secretboxKeySize)
		copy(h.key[:], derived)
	}

	return h, nil
}

// RandomEncryptionKey returns a fresh base64 encoded secretbox key.
func RandomEncryptionKey() (string, error) {
	var key [secretboxKeySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", fmt.Errorf("generate encryption key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// GenerateToken creates a new encrypted TOTP token for the account and
// returns it together with the provisioning URI for client-side QR display.
func (h *TOTPHandler) GenerateToken(accountName string) (*domain.TOTPToken, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      h.issuer,
		AccountName: accountName,
		Period:      h.period,
		SecretSize:  h.secretSize,
		Digits:      h.digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generate TOTP secret: %w", err)
	}

	encrypted, err := h.encrypt([]byte(key.Secret()))
	if err != nil {
		return nil, "", err
	}

	token := &domain.TOTPToken{
		Secret:   encrypted,
		Counter:  -1,
		Attempts: 0,
	}

	return token, key.String(), nil
}

// VerifyCode checks a code against the token for the given moment,
// tolerating the configured number of time steps of clock skew.
//
// The token's counter and attempt fields are updated in place: a code for
// an already verified time step is rejected (replay), and once the
// attempt limit for the current time step is reached further codes are
// rejected without touching the verifier (brute force). Callers must
// persist the mutated token.
func (h *TOTPHandler) VerifyCode(token *domain.TOTPToken, code string, at time.Time) (bool, error) {
	if token == nil {
		return false, ErrNoSecret
	}
	if len(code) != h.digits.Length() || !allDigits(code) {
		return false, nil
	}

	secret, err := h.secret(token)
	if err != nil {
		return false, err
	}

	counter := at.Unix() / int64(h.period)
	switch {
	case token.Counter > counter:
		// token was used for a future time step, should never happen
		return false, nil
	case token.Counter < counter:
		token.Counter = counter
		token.Attempts = 0
	default:
		if token.Attempts < 0 || token.Attempts >= h.maxAttempts {
			return false, nil
		}
	}

	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    h.period,
		Skew:      h.skew,
		Digits:    h.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("verify TOTP code: %w", err)
	}

	if valid {
		token.Attempts = -1
	} else {
		token.Attempts++
	}

	return valid, nil
}

// GenerateCode computes the valid code for the given moment. Used by tests.
func (h *TOTPHandler) GenerateCode(token *domain.TOTPToken, at time.Time) (string, error) {
	secret, err := h.secret(token)
	if err != nil {
		return "", err
	}

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    h.period,
		Skew:      h.skew,
		Digits:    h.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate TOTP code: %w", err)
	}
	return code, nil
}

func (h *TOTPHandler) secret(token *domain.TOTPToken) (string, error) {
	if token == nil || token.Secret == "" {
		return "", ErrNoSecret
	}

	raw, err := base64.StdEncoding.DecodeString(token.Secret)
	if err != nil || len(raw) <= secretboxNonceSize {
		return "", ErrMalformedSecret
	}

	var nonce [secretboxNonceSize]byte
	copy(nonce[:], raw[:secretboxNonceSize])

	plain, ok := secretbox.Open(nil, raw[secretboxNonceSize:], &nonce, &h.key)
	if !ok {
		return "", ErrMalformedSecret
	}

	return string(plain), nil
}

func (h *TOTPHandler) encrypt(plain []byte) (string, error) {
	var nonce [secretboxNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plain, &nonce, &h.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
