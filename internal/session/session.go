// Package session issues and resolves server-side sessions. A session lives in
// Redis; the client holds a signed token naming it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"brokenweave/internal/model"
)

var (
	ErrNoSession    = errors.New("session not found")
	ErrExpired      = errors.New("session expired")
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the single source of truth for who is calling. Guest sessions
// carry no user.
type Session struct {
	ID        string    `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	Guest     bool      `json:"guest"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store keeps sessions in Redis under session:<id> with a matching TTL.
type Store struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

func key(id string) string {
	return "session:" + id
}

func (s *Store) Save(ctx context.Context, sess *Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrExpired
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, ErrExpired
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager creates sessions and the HS256 tokens that point at them.
type Manager struct {
	store    *Store
	secret   []byte
	ttl      time.Duration
	guestTTL time.Duration
	now      func() time.Time
}

func NewManager(store *Store, secret string, ttl, guestTTL time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, guestTTL: guestTTL, now: time.Now}
}

// Start opens a session for u.
func (m *Manager) Start(ctx context.Context, u *model.User) (*Session, string, error) {
	id := u.ID
	return m.start(ctx, &Session{
		UserID:   &id,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}, m.ttl)
}

// StartGuest opens a session without a user.
func (m *Manager) StartGuest(ctx context.Context) (*Session, string, error) {
	return m.start(ctx, &Session{Guest: true}, m.guestTTL)
}

func (m *Manager) start(ctx context.Context, sess *Session, ttl time.Duration) (*Session, string, error) {
	now := m.now()
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(ttl)

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return sess, signed, nil
}

// Resolve validates token and loads the live session it names.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return m.store.Get(ctx, c.SessionID)
}

// SessionID returns the session a correctly signed token names, even when the
// token has expired, or "" when the token is not ours.
func (m *Manager) SessionID(token string) string {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ""
	}
	return c.SessionID
}

// End deletes the session.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// ExtractToken returns the bearer token of r, or "".
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
