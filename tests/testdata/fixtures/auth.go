package fixtures

import (
	"crypto/subtle"
	"errors"
	"time"
)

// ErrInvalidCredentials is returned when a login attempt fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session represents a logged-in user session.
type Session struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// AuthenticateUser checks a password against the stored hash and returns a
// session on success.
func AuthenticateUser(store *UserStore, id int64, password, storedHash string) (*Session, error) {
	u, err := store.FindUser(id)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(storedHash)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return &Session{
		UserID:    u.ID,
		Token:     generateToken(u.ID),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

func generateToken(id int64) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = alphabet[(int(id)+i*7)%len(alphabet)]
	}
	return string(buf)
}
