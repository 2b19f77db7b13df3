package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonredis "cleantech-console/common/redis"
	"cleantech-console/internal/domain"
	"cleantech-console/internal/store"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no session")

// Session is the authenticated console user. It is created at login and
// never mutated afterwards.
type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"userId"`
	UserName  string    `json:"userName"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Session) IsAdmin() bool { return s.Role == domain.RoleAdmin }

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// Store keeps sessions in the KV under "console:session:{id}".
type Store struct {
	kv  store.KV
	ttl time.Duration
	now func() time.Time
}

func NewStore(kv store.KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl, now: time.Now}
}

func key(id string) string { return commonredis.Key("console", "session", id) }

// Create stores a new session and returns it with a fresh id.
func (s *Store) Create(ctx context.Context, userID int, userName string, role, token string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		Role:      role,
		Token:     token,
		CreatedAt: s.now().UTC(),
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.kv.Set(ctx, key(sess.ID), string(b), s.ttl); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	raw, err := s.kv.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Del(ctx, key(id))
}
