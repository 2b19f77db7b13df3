package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonredis "cleantech-console/common/redis"
	"cleantech-console/internal/listing"
)

// StateStore persists screen state per session under
// "console:state:{session}:{screen}".
type StateStore struct {
	kv  KV
	ttl time.Duration
}

func NewStateStore(kv KV, ttl time.Duration) *StateStore {
	return &StateStore{kv: kv, ttl: ttl}
}

func stateKey(sessionID, screen string) string {
	return commonredis.Key("console", "state", sessionID, screen)
}

func (s *StateStore) Save(ctx context.Context, sessionID, screen string, st listing.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, stateKey(sessionID, screen), string(raw), s.ttl)
}

// Load returns ErrMiss when nothing was saved.
func (s *StateStore) Load(ctx context.Context, sessionID, screen string) (listing.State, error) {
	raw, err := s.kv.Get(ctx, stateKey(sessionID, screen))
	if err != nil {
		return listing.State{}, err
	}
	var st listing.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return listing.State{}, fmt.Errorf("decode %s state: %w", screen, err)
	}
	return st, nil
}

// Screens lists the screens that have saved state for a session.
func (s *StateStore) Screens(ctx context.Context, sessionID string) ([]string, error) {
	prefix := stateKey(sessionID, "")
	keys, err := s.kv.ScanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out, nil
}

// Drop removes all saved state of a session, e.g. on logout.
func (s *StateStore) Drop(ctx context.Context, sessionID string) error {
	keys, err := s.kv.ScanKeys(ctx, stateKey(sessionID, "")+"*")
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, keys...)
}

func IsMiss(err error) bool { return errors.Is(err, ErrMiss) }
