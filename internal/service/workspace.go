package service

import (
	"context"
	"sync"
	"time"

	"cleantech-console/internal/backend"
	"cleantech-console/internal/listing"
	"cleantech-console/internal/store"

	"go.uber.org/zap"
)

// Workspace is the screen state of one session: every opened list screen
// and the location picker.
type Workspace struct {
	SessionID string

	mu       sync.Mutex
	screens  map[string]Screen
	stale    map[string]bool
	picker   *listing.Cascade
	lastUsed time.Time
}

// Workspaces owns the workspace of every live session.
type Workspaces struct {
	registry *Registry
	client   *backend.Client
	loader   listing.OptionLoader
	states   *store.StateStore
	pageSize int
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	byID map[string]*Workspace
}

func NewWorkspaces(registry *Registry, client *backend.Client, loader listing.OptionLoader, states *store.StateStore, pageSize int, logger *zap.Logger) *Workspaces {
	return &Workspaces{
		registry: registry,
		client:   client,
		loader:   loader,
		states:   states,
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
		byID:     map[string]*Workspace{},
	}
}

func (w *Workspaces) get(sessionID string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.byID[sessionID]
	if !ok {
		ws = &Workspace{
			SessionID: sessionID,
			screens:   map[string]Screen{},
			stale:     map[string]bool{},
			picker:    listing.NewCascade(w.loader, w.logger),
		}
		w.byID[sessionID] = ws
	}
	ws.mu.Lock()
	ws.lastUsed = w.now()
	ws.mu.Unlock()
	return ws
}

// Screen returns the named screen of a session, loading it when it was
// never loaded, was restored from saved state or was invalidated. A load
// error is returned together with the screen, which then shows the empty
// state.
func (w *Workspaces) Screen(ctx context.Context, sessionID, name string) (Screen, error) {
	def, err := w.registry.Get(name)
	if err != nil {
		return nil, err
	}
	ws := w.get(sessionID)

	ws.mu.Lock()
	s, ok := ws.screens[name]
	if !ok {
		s = def.Open(w.client, w.pageSize, w.logger)
		ws.screens[name] = s
	}
	stale := ws.stale[name]
	delete(ws.stale, name)
	ws.mu.Unlock()

	if !ok {
		w.restore(ctx, sessionID, s)
	}
	if !s.Loaded() || stale {
		return s, s.Load(ctx)
	}
	return s, nil
}

func (w *Workspaces) restore(ctx context.Context, sessionID string, s Screen) {
	if w.states == nil {
		return
	}
	st, err := w.states.Load(ctx, sessionID, s.Name())
	if err != nil {
		if !store.IsMiss(err) {
			w.logger.Warn("failed to load saved screen state",
				zap.String("session_id", sessionID),
				zap.String("screen", s.Name()),
				zap.Error(err),
			)
		}
		return
	}
	s.RestoreState(st)
}

// Persist saves the screen state so a rebuilt workspace resumes from it.
func (w *Workspaces) Persist(ctx context.Context, sessionID string, s Screen) {
	if w.states == nil {
		return
	}
	if err := w.states.Save(ctx, sessionID, s.Name(), s.Snapshot()); err != nil {
		w.logger.Warn("failed to save screen state",
			zap.String("session_id", sessionID),
			zap.String("screen", s.Name()),
			zap.Error(err),
		)
	}
}

func (w *Workspaces) Picker(sessionID string) *listing.Cascade {
	return w.get(sessionID).picker
}

// Invalidate marks screen stale in every workspace; the next access reloads.
func (w *Workspaces) Invalidate(screen string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ws := range w.byID {
		ws.mu.Lock()
		if _, ok := ws.screens[screen]; ok {
			ws.stale[screen] = true
		}
		ws.mu.Unlock()
	}
}

// Drop forgets a session's workspace and its saved state.
func (w *Workspaces) Drop(ctx context.Context, sessionID string) {
	w.mu.Lock()
	delete(w.byID, sessionID)
	w.mu.Unlock()
	if w.states != nil {
		if err := w.states.Drop(ctx, sessionID); err != nil {
			w.logger.Warn("failed to drop saved screen state", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

// Sweep evicts workspaces idle for longer than idle. Their saved state is
// kept so the session resumes where it left off.
func (w *Workspaces) Sweep(idle time.Duration) int {
	cutoff := w.now().Add(-idle)
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for id, ws := range w.byID {
		ws.mu.Lock()
		old := ws.lastUsed.Before(cutoff)
		ws.mu.Unlock()
		if old {
			delete(w.byID, id)
			n++
		}
	}
	return n
}

func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byID)
}
