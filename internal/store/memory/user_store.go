package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing and development - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	nextID  int64
	users   map[int64]*models.User // user_id -> User
	byEmail map[string]int64       // email -> user_id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[int64]*models.User),
		byEmail: make(map[string]int64),
	}
}

// Create stores a new user and assigns its ID.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrUserAlreadyExists
	}

	s.nextID++
	user.UserID = s.nextID

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	// Clone to avoid external modifications
	clone := *user
	s.users[clone.UserID] = &clone
	s.byEmail[clone.Email] = clone.UserID

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// GetByEmail retrieves a user by exact email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[email]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *s.users[id]
	return &clone, nil
}

// Update stores the email, name and password hash of an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.UserID]
	if !exists {
		return store.ErrUserNotFound
	}

	if id, taken := s.byEmail[user.Email]; taken && id != user.UserID {
		return store.ErrUserAlreadyExists
	}

	delete(s.byEmail, existing.Email)
	existing.Email = user.Email
	existing.Name = user.Name
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = time.Now()
	s.byEmail[existing.Email] = existing.UserID

	*user = *existing
	return nil
}

// SetActive flips the active flag of a user. Deactivation is an administrative action
// outside the API; this exists for development mode and tests.
func (s *UserStore) SetActive(userID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	user.Active = active
	user.UpdatedAt = time.Now()
	return nil
}
