package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
)

// MemoryStore is a map-backed Store for tests. It keeps the same contracts
// as the Redis store: (nil, nil) getters, Conflict on duplicate email and on
// stale versions, records isolated by deep copy.
type MemoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*domain.UserRecord
	idIdx   map[uuid.UUID]string
	nameIdx map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byEmail: make(map[string]*domain.UserRecord),
		idIdx:   make(map[uuid.UUID]string),
		nameIdx: make(map[string]string),
	}
}

var _ Store = (*MemoryStore)(nil)

func cloneRecord(u *domain.UserRecord) *domain.UserRecord {
	raw, err := json.Marshal(u)
	if err != nil {
		panic(fmt.Sprintf("clone user record: %v", err))
	}
	var out domain.UserRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("clone user record: %v", err))
	}
	return &out
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.idIdx[id]
	if !ok {
		return nil, nil
	}
	return cloneRecord(m.byEmail[email]), nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	return cloneRecord(u), nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.nameIdx[username]
	if !ok {
		return nil, nil
	}
	return cloneRecord(m.byEmail[email]), nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]*domain.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.UserRecord, 0, len(m.byEmail))
	for _, u := range m.byEmail {
		out = append(out, cloneRecord(u))
	}
	return out, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *domain.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[u.Email]; exists {
		return apierr.Conflict("email already registered")
	}
	u.Version = 1
	m.byEmail[u.Email] = cloneRecord(u)
	m.idIdx[u.ID] = u.Email
	if u.Username != "" {
		m.nameIdx[u.Username] = u.Email
	}
	return nil
}

func (m *MemoryStore) PutUser(ctx context.Context, u *domain.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byEmail[u.Email]
	if ok && existing.Version != u.Version {
		return apierr.Conflict("user record changed concurrently")
	}
	u.Version++
	m.byEmail[u.Email] = cloneRecord(u)
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.idIdx[id]
	if !ok {
		return nil
	}
	u := m.byEmail[email]
	delete(m.byEmail, email)
	delete(m.idIdx, id)
	if u != nil && u.Username != "" {
		delete(m.nameIdx, u.Username)
	}
	return nil
}
