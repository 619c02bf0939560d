// Package access provides bcrypt-backed account registration and
// session tokens for board and key/value store clients, adapted from
// the teacher's in-memory auth.Manager: usernames here double as board
// player identifiers, so a registered account can be handed straight
// to internal/board's player-facing operations.
package access

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 24 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// usernamePattern doubles as the board player-ID pattern: usernames
// accepted here must already be legal board player identifiers.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// Manager holds accounts and sessions in memory, guarded by a single
// mutex; the same single-binary-deployment tradeoff the teacher's
// Manager makes.
type Manager struct {
	mu sync.Mutex

	sessionTTL    time.Duration
	sessions      map[string]sessionRecord  // token -> account
	accountsByKey map[string]accountRecord // username -> profile
}

type sessionRecord struct {
	Username  string
	ExpiresAt time.Time
}

type accountRecord struct {
	Username      string
	PasswordHash  []byte
	LastLoginTime time.Time
}

// NewManager returns an empty Manager with the default session TTL.
func NewManager() *Manager {
	return &Manager{
		sessionTTL:    defaultSessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByKey: make(map[string]accountRecord),
	}
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(username string, now time.Time) string {
	token := mustToken()
	m.sessions[token] = sessionRecord{Username: username, ExpiresAt: now.Add(m.sessionTTL)}
	return token
}

func (m *Manager) resolveSessionLocked(token string, now time.Time) (username string, ok bool) {
	if token == "" {
		return "", false
	}
	rec, exists := m.sessions[token]
	if !exists {
		return "", false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return "", false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec
	return rec.Username, true
}

// Register creates a new account named username, identical to the
// player identifier it will be used with on the board, and returns a
// fresh session token.
func (m *Manager) Register(username, password string) (sessionToken string, err error) {
	if err = validateUsername(username); err != nil {
		return "", err
	}
	if err = validatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accountsByKey[username]; exists {
		return "", ErrUsernameTaken
	}

	now := time.Now()
	m.accountsByKey[username] = accountRecord{
		Username:      username,
		PasswordHash:  hash,
		LastLoginTime: now,
	}
	return m.issueSessionLocked(username, now), nil
}

// Login validates credentials and returns a fresh session token.
func (m *Manager) Login(username, password string) (sessionToken string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, exists := m.accountsByKey[username]
	if !exists || len(profile.PasswordHash) == 0 {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	profile.LastLoginTime = now
	m.accountsByKey[username] = profile
	return m.issueSessionLocked(username, now), nil
}

// ResolveSession validates and refreshes a session token, returning the
// player identifier it was issued for.
func (m *Manager) ResolveSession(token string) (username string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveSessionLocked(token, time.Now())
}

// Logout invalidates a session token.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
