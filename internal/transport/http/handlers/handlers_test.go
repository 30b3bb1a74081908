package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/infra/config"
	"github.com/ghga-de/auth-adapter/internal/infra/security"
	"github.com/ghga-de/auth-adapter/internal/repository"
	"github.com/ghga-de/auth-adapter/internal/repository/memory"
	"github.com/ghga-de/auth-adapter/internal/transport/http/middleware"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIdentityProvider struct {
	identity *domain.Identity
	err      error
	calls    int
}

func (f *fakeIdentityProvider) UserInfo(_ context.Context, _ string) (*domain.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeUserRepository struct {
	byExtID map[string]*domain.User
	byID    map[string]*domain.User
}

func newFakeUserRepository(users ...domain.User) *fakeUserRepository {
	repo := &fakeUserRepository{
		byExtID: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
	for i := range users {
		user := users[i]
		repo.byExtID[user.ExtID] = &user
		repo.byID[user.ID] = &user
	}
	return repo
}

func (f *fakeUserRepository) FindByExtID(_ context.Context, extID string) (*domain.User, error) {
	user, ok := f.byExtID[extID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepository) Create(_ context.Context, user domain.User) error {
	if _, ok := f.byExtID[user.ExtID]; ok {
		return repository.ErrAlreadyExists
	}
	f.byExtID[user.ExtID] = &user
	f.byID[user.ID] = &user
	return nil
}

func (f *fakeUserRepository) Update(_ context.Context, user domain.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return repository.ErrNotFound
	}
	f.byID[user.ID] = &user
	f.byExtID[user.ExtID] = &user
	return nil
}

type fakeClaimRepository struct {
	roles map[string]string
}

func (f *fakeClaimRepository) RoleFor(_ context.Context, userID string) (string, error) {
	return f.roles[userID], nil
}

type fakeEventPublisher struct {
	registered []domain.UserRegisteredEvent
	updated    []domain.UserUpdatedEvent
	recreated  []domain.SecondFactorRecreatedEvent
}

func (f *fakeEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	f.registered = append(f.registered, event)
	return nil
}

func (f *fakeEventPublisher) PublishUserUpdated(_ context.Context, event domain.UserUpdatedEvent) error {
	f.updated = append(f.updated, event)
	return nil
}

func (f *fakeEventPublisher) PublishSecondFactorRecreated(_ context.Context, event domain.SecondFactorRecreatedEvent) error {
	f.recreated = append(f.recreated, event)
	return nil
}

var errIdPDown = errors.New("userinfo request failed")

// testEnv wires the full service stack over in-memory fakes so handler
// tests exercise the real usecase semantics end to end.
type testEnv struct {
	store    *memory.SessionStore
	idp      *fakeIdentityProvider
	users    *fakeUserRepository
	claims   *fakeClaimRepository
	events   *fakeEventPublisher
	codec    *security.TokenCodec
	sessions *usecase.SessionService
	totp     *usecase.TOTPService
	registry *usecase.RegistrationService
	exchange *usecase.ExchangeService
	cfg      config.SessionSettings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: memory.NewSessionStore(time.Hour, 12*time.Hour),
		idp: &fakeIdentityProvider{identity: &domain.Identity{
			Subject: "john@aai.org",
			Name:    "John Doe",
			Email:   "john@home.org",
		}},
		users:  newFakeUserRepository(),
		claims: &fakeClaimRepository{roles: map[string]string{}},
		events: &fakeEventPublisher{},
		cfg: config.SessionSettings{
			IDBytes:     24,
			CSRFBytes:   24,
			IdleTimeout: time.Hour,
			MaxLifetime: 12 * time.Hour,
			CookieName:  "session",
		},
	}

	provider, err := security.NewEphemeralKeyProvider("test")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider: %v", err)
	}
	env.codec, err = security.NewTokenCodec(provider, "test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	key, err := security.RandomEncryptionKey()
	if err != nil {
		t.Fatalf("RandomEncryptionKey: %v", err)
	}
	totpHandler, err := security.NewTOTPHandler(security.TOTPConfig{
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

	log := zaptest.NewLogger(t)
	env.sessions = usecase.NewSessionService(env.cfg, env.store, env.idp, env.users, env.claims, log)
	env.totp = usecase.NewTOTPService(totpHandler, env.store, env.events, log)
	env.registry = usecase.NewRegistrationService(env.users, env.store, env.events, log)
	env.exchange = usecase.NewExchangeService(env.codec, env.idp, env.users, env.claims, log)
	return env
}

// withSession injects a fixed session the way the resolver middleware would.
func withSession(session *domain.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if session != nil {
			c.Set(middleware.SessionKey, session)
		}
		c.Next()
	}
}

func authenticatedSession() *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		ID:        "session-1",
		ExtID:     "john@aai.org",
		UserName:  "John Doe",
		UserEmail: "john@home.org",
		State:     domain.SessionStateAuthenticated,
		CSRFToken: "csrf-token",
		TOTPToken: &domain.TOTPToken{Secret: "encrypted", Counter: -1, Attempts: -1},
		Created:   now,
		LastUsed:  now,
	}
}
