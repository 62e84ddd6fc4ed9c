package fixtures

import (
	"errors"
	"sync"
)

// ErrUserNotFound is returned when a user ID has no record.
var ErrUserNotFound = errors.New("user not found")

// User is a minimal account record.
type User struct {
	ID    int64
	Email string
	Admin bool
}

// UserStore keeps users in memory keyed by ID.
type UserStore struct {
	mu    sync.RWMutex
	users map[int64]*User
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]*User)}
}

// SaveUser inserts or replaces a user record.
func (s *UserStore) SaveUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// FindUser looks a user up by ID.
func (s *UserStore) FindUser(id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// CountAdmins returns how many stored users are administrators.
func (s *UserStore) CountAdmins() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Admin {
			n++
		}
	}
	return n
}
