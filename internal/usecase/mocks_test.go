package usecase

import (
	"context"
	"sync"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

type mockIdentityProvider struct {
	identity *domain.Identity
	err      error
	calls    int
}

func (m *mockIdentityProvider) UserInfo(_ context.Context, _ string) (*domain.Identity, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	copy := *m.identity
	return &copy, nil
}

type mockUserRepository struct {
	byExtID map[string]domain.User
	byID    map[string]domain.User

	findErr   error
	createErr error
	updateErr error

	createCalls int
	createdUser domain.User
	updateCalls int
	updatedUser domain.User
}

func newMockUserRepository(users ...domain.User) *mockUserRepository {
	repo := &mockUserRepository{
		byExtID: make(map[string]domain.User),
		byID:    make(map[string]domain.User),
	}
	for _, user := range users {
		repo.byExtID[user.ExtID] = user
		repo.byID[user.ID] = user
	}
	return repo
}

func (m *mockUserRepository) FindByExtID(_ context.Context, extID string) (*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.byExtID[extID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := user
	return &copy, nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := user
	return &copy, nil
}

func (m *mockUserRepository) Create(_ context.Context, user domain.User) error {
	m.createCalls++
	m.createdUser = user
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byExtID[user.ExtID]; ok {
		return repository.ErrAlreadyExists
	}
	m.byExtID[user.ExtID] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepository) Update(_ context.Context, user domain.User) error {
	m.updateCalls++
	m.updatedUser = user
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.byID[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	user.ExtID = stored.ExtID
	user.RegisteredAt = stored.RegisteredAt
	m.byID[user.ID] = user
	m.byExtID[user.ExtID] = user
	return nil
}

type mockClaimRepository struct {
	roles map[string]string
	err   error
	calls int
}

func (m *mockClaimRepository) RoleFor(_ context.Context, userID string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.roles[userID], nil
}

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session

	insertErr error
	saveErr   error

	insertCalls int
	saveCalls   int
	deleteCalls int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionStore) Insert(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.sessions[session.ID]; ok {
		return repository.ErrAlreadyExists
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Save(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := session
	return &copy, nil
}

func (m *mockSessionStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	delete(m.sessions, sessionID)
	return nil
}

type mockEventPublisher struct {
	registered []domain.UserRegisteredEvent
	updated    []domain.UserUpdatedEvent
	recreated  []domain.SecondFactorRecreatedEvent
	err        error
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registered = append(m.registered, event)
	return m.err
}

func (m *mockEventPublisher) PublishUserUpdated(_ context.Context, event domain.UserUpdatedEvent) error {
	m.updated = append(m.updated, event)
	return m.err
}

func (m *mockEventPublisher) PublishSecondFactorRecreated(_ context.Context, event domain.SecondFactorRecreatedEvent) error {
	m.recreated = append(m.recreated, event)
	return m.err
}
