package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/infra/logger"
)

// ErrUserInfo is returned for any failure to resolve a bearer token into
// an identity: transport errors, timeouts, non-200 responses and malformed
// payloads all fail closed.
var ErrUserInfo = errors.New("could not get user info")

// Client calls the IdP's OIDC userinfo endpoint.
type Client struct {
	http   *http.Client
	url    string
	logger *zap.Logger
}

const defaultTimeout = 5 * time.Second

// NewClient builds a userinfo client with a bounded request timeout.
func NewClient(userInfoURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if userInfoURL == "" {
		return nil, fmt.Errorf("userinfo URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:   &http.Client{Timeout: timeout},
		url:    userInfoURL,
		logger: log,
	}, nil
}

// UserInfo resolves the bearer token against the userinfo endpoint. Every
// field of the returned identity is guaranteed non-empty.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrUserInfo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("userinfo request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("userinfo request rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	var payload struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}

	if payload.Sub == "" || payload.Name == "" || payload.Email == "" {
		return nil, fmt.Errorf("%w: incomplete userinfo", ErrUserInfo)
	}

	c.logger.Debug("userinfo resolved",
		zap.String("subject", payload.Sub),
		zap.String("email", logger.MaskEmail(payload.Email)),
	)

	return &domain.Identity{
		Subject: payload.Sub,
		Name:    payload.Name,
		Email:   payload.Email,
	}, nil
}
