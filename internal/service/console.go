package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cleantech-console/internal/backend"
	"cleantech-console/internal/domain"
	"cleantech-console/internal/events"
	"cleantech-console/internal/export"
	"cleantech-console/internal/listing"
	"cleantech-console/internal/repository"
	"cleantech-console/internal/session"
	"cleantech-console/internal/validation"

	"go.uber.org/zap"
)

var (
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNothingSelected      = errors.New("nothing selected")
	ErrForbidden            = errors.New("forbidden")
)

const (
	ActionDelete      = "delete"
	ActionBulkDelete  = "bulk-delete"
	ActionRestore     = "restore"
	ActionForceDelete = "force-delete"
	ActionAssign      = "assign"
	ActionCreate      = "create"
	ActionUpdate      = "update"
)

// Console is the application service behind the console API. It owns no
// state of its own; screens live in Workspaces, sessions in the session store.
type Console struct {
	registry   *Registry
	workspaces *Workspaces
	client     *backend.Client
	questions  *backend.Questions
	sessions   *session.Store
	actions    repository.ActionLogsRepository
	events     events.Publisher
	logger     *zap.Logger
}

type Deps struct {
	Registry   *Registry
	Workspaces *Workspaces
	Client     *backend.Client
	Sessions   *session.Store
	Actions    repository.ActionLogsRepository
	Events     events.Publisher
	Logger     *zap.Logger
}

func NewConsole(d Deps) *Console {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Actions == nil {
		d.Actions = repository.NewMemoryActionLogsRepo()
	}
	return &Console{
		registry:   d.Registry,
		workspaces: d.Workspaces,
		client:     d.Client,
		questions:  backend.NewQuestions(d.Client),
		sessions:   d.Sessions,
		actions:    d.Actions,
		events:     d.Events,
		logger:     d.Logger,
	}
}

// Login authenticates against the backend and opens a console session.
func (c *Console) Login(ctx context.Context, form backend.LoginForm) (session.Session, error) {
	res, err := c.client.Login(ctx, form)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := c.sessions.Create(ctx, res.UserID, res.UserName, res.Role, res.Token)
	if err != nil {
		return session.Session{}, err
	}
	c.logger.Info("console session opened",
		zap.String("session_id", sess.ID),
		zap.String("user_name", sess.UserName),
		zap.String("role", sess.Role),
	)
	return sess, nil
}

func (c *Console) Logout(ctx context.Context, sess session.Session) error {
	c.workspaces.Drop(ctx, sess.ID)
	return c.sessions.Delete(ctx, sess.ID)
}

func (c *Console) Screens() []ScreenInfo { return c.registry.Infos() }

// View returns the rendered screen. A load failure is returned along with
// the empty-state view.
func (c *Console) View(ctx context.Context, sess session.Session, name string) (any, error) {
	s, err := c.workspaces.Screen(ctx, sess.ID, name)
	if s == nil {
		return nil, err
	}
	return s.Render(), err
}

// navigate applies a state change to a screen, persists it and renders.
func (c *Console) navigate(ctx context.Context, sess session.Session, name string, fn func(Screen) error) (any, error) {
	s, err := c.workspaces.Screen(ctx, sess.ID, name)
	if s == nil {
		return nil, err
	}
	err = fn(s)
	if errors.Is(err, listing.ErrPageOutOfRange) || errors.Is(err, listing.ErrInvalidPageSize) {
		return s.Render(), err
	}
	c.workspaces.Persist(ctx, sess.ID, s)
	return s.Render(), err
}

func (c *Console) Search(ctx context.Context, sess session.Session, name, term string) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error { return s.Search(ctx, term) })
}

func (c *Console) GoToPage(ctx context.Context, sess session.Session, name string, page int) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error { return s.GoToPage(ctx, page) })
}

func (c *Console) ResizePage(ctx context.Context, sess session.Session, name string, size int) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error { return s.ResizePage(ctx, size) })
}

func (c *Console) ApplyFilters(ctx context.Context, sess session.Session, name string, f listing.Filters) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error { return s.ApplyFilters(ctx, f) })
}

func (c *Console) SetTrash(ctx context.Context, sess session.Session, name string, on bool) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error { return s.SetTrash(ctx, on) })
}

func (c *Console) Reload(ctx context.Context, sess session.Session, name string) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error { return s.Load(ctx) })
}

func (c *Console) ToggleSelect(ctx context.Context, sess session.Session, name string, id int, selected bool) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error {
		s.ToggleSelect(id, selected)
		return nil
	})
}

func (c *Console) SelectAll(ctx context.Context, sess session.Session, name string, selected bool) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error {
		s.SelectAll(selected)
		return nil
	})
}

func (c *Console) ToggleCollapse(ctx context.Context, sess session.Session, name string, id int) (any, error) {
	return c.navigate(ctx, sess, name, func(s Screen) error {
		s.ToggleCollapse(id)
		return nil
	})
}

// mutate runs a backend mutation on ids, records it, and on success drops
// the ids from the screen, announces the change and reloads. A reload
// failure after a successful mutation is left in the view, not returned.
func (c *Console) mutate(ctx context.Context, sess session.Session, name, action string, ids []int, fn func(Screen) error) (any, error) {
	s, err := c.workspaces.Screen(ctx, sess.ID, name)
	if s == nil {
		return nil, err
	}

	err = fn(s)
	c.record(ctx, sess, name, action, ids, err)
	if err != nil {
		return s.Render(), err
	}

	s.Forget(ids...)
	c.publish(ctx, sess, name, action, ids)
	if lerr := s.Load(ctx); lerr != nil {
		c.logger.Warn("reload after mutation failed", zap.String("screen", name), zap.Error(lerr))
	}
	c.workspaces.Persist(ctx, sess.ID, s)
	return s.Render(), nil
}

func (c *Console) Delete(ctx context.Context, sess session.Session, name string, id int, confirm bool) (any, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	return c.mutate(ctx, sess, name, ActionDelete, []int{id}, func(s Screen) error { return s.Delete(ctx, id) })
}

// BulkDelete soft deletes every selected row of the screen, on any page.
func (c *Console) BulkDelete(ctx context.Context, sess session.Session, name string, confirm bool) (any, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	s, err := c.workspaces.Screen(ctx, sess.ID, name)
	if s == nil {
		return nil, err
	}
	ids := s.SelectedIDs()
	if len(ids) == 0 {
		return s.Render(), ErrNothingSelected
	}
	return c.mutate(ctx, sess, name, ActionBulkDelete, ids, func(s Screen) error { return s.BulkDelete(ctx, ids) })
}

func (c *Console) Restore(ctx context.Context, sess session.Session, name string, id int) (any, error) {
	return c.mutate(ctx, sess, name, ActionRestore, []int{id}, func(s Screen) error { return s.Restore(ctx, id) })
}

func (c *Console) ForceDelete(ctx context.Context, sess session.Session, name string, id int, confirm bool) (any, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}
	return c.mutate(ctx, sess, name, ActionForceDelete, []int{id}, func(s Screen) error { return s.ForceDelete(ctx, id) })
}

// Document is a rendered export.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (c *Console) Export(ctx context.Context, sess session.Session, name string, format export.Format, scope Scope) (Document, error) {
	s, err := c.workspaces.Screen(ctx, sess.ID, name)
	if err != nil {
		return Document{}, err
	}
	if scope == ScopeSelection && len(s.SelectedIDs()) == 0 {
		return Document{}, ErrNothingSelected
	}
	tbl, err := s.Export(ctx, scope)
	if err != nil {
		return Document{}, err
	}
	data, err := export.Render(format, tbl)
	if err != nil {
		return Document{}, err
	}
	c.logger.Info("screen exported",
		zap.String("screen", name),
		zap.String("format", string(format)),
		zap.String("scope", string(scope)),
		zap.Int("rows", len(tbl.Rows)),
	)
	return Document{
		FileName:    fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102-150405"), format.Extension()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Picker returns the location picker, loading the areas the first time.
func (c *Console) Picker(ctx context.Context, sess session.Session) (listing.CascadeView, error) {
	p := c.workspaces.Picker(sess.ID)
	var err error
	if len(p.Options(listing.LevelArea)) == 0 && !p.Loading(listing.LevelArea) {
		err = p.LoadRoots(ctx)
	}
	return p.View(), err
}

func (c *Console) PickerSelect(ctx context.Context, sess session.Session, level listing.Level, id int) (listing.CascadeView, error) {
	p := c.workspaces.Picker(sess.ID)
	err := p.Select(ctx, level, id)
	return p.View(), err
}

func (c *Console) PickerClear(ctx context.Context, sess session.Session, level listing.Level) listing.CascadeView {
	p := c.workspaces.Picker(sess.ID)
	if level == listing.LevelNone {
		p.Reset()
	} else {
		p.Clear(level)
	}
	return p.View()
}

// PickerApply filters a screen by the picked location. Non-location filters
// already on the screen are kept.
func (c *Console) PickerApply(ctx context.Context, sess session.Session, name string) (any, error) {
	picked := c.workspaces.Picker(sess.ID).Filter()
	return c.navigate(ctx, sess, name, func(s Screen) error {
		f := s.Snapshot().Filters.Clone()
		for _, l := range listing.Levels {
			delete(f, l.FilterKey())
		}
		for k, v := range picked {
			f[k] = v
		}
		return s.ApplyFilters(ctx, f)
	})
}

func (c *Console) CreateQuestion(ctx context.Context, sess session.Session, form domain.QuestionForm) (any, error) {
	form.ID = 0
	return c.questionChange(ctx, sess, ActionCreate, nil, func() error { return c.questions.CreateWithImage(ctx, form) })
}

func (c *Console) UpdateQuestion(ctx context.Context, sess session.Session, form domain.QuestionForm) (any, error) {
	if form.ID <= 0 {
		return nil, validation.Errors{"id": "is required"}
	}
	return c.questionChange(ctx, sess, ActionUpdate, []int{form.ID}, func() error { return c.questions.UpdateWithImage(ctx, form) })
}

func (c *Console) questionChange(ctx context.Context, sess session.Session, action string, ids []int, fn func() error) (any, error) {
	err := fn()
	c.record(ctx, sess, ScreenQuestions, action, ids, err)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, sess, ScreenQuestions, action, ids)
	return c.Reload(ctx, sess, ScreenQuestions)
}

// AssignQuestions binds the questions selected on the question screen to a
// section or a point.
func (c *Console) AssignQuestions(ctx context.Context, sess session.Session, sectionID, pointID int) (any, error) {
	s, err := c.workspaces.Screen(ctx, sess.ID, ScreenQuestions)
	if s == nil {
		return nil, err
	}
	ids := s.SelectedIDs()
	if len(ids) == 0 {
		return s.Render(), ErrNothingSelected
	}
	err = c.questions.Assign(ctx, domain.QuestionAssignment{SectionID: sectionID, PointID: pointID, QuestionIDs: ids})
	c.record(ctx, sess, ScreenQuestions, ActionAssign, ids, err)
	if err != nil {
		return s.Render(), err
	}
	c.publish(ctx, sess, ScreenQuestions, ActionAssign, ids)
	return s.Render(), nil
}

// ActionLogs lists the action log. Only administrators may read it.
func (c *Console) ActionLogs(ctx context.Context, sess session.Session, filter repository.ActionLogFilters, page, size int) ([]repository.ActionLog, int, error) {
	if !sess.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return c.actions.ListActionLogs(ctx, filter, page, size)
}

// HandleEvent reacts to a mutation made on another replica.
func (c *Console) HandleEvent(e events.Event) {
	c.logger.Debug("remote mutation", zap.String("screen", e.Screen), zap.String("action", e.Action), zap.String("origin", e.Origin))
	c.workspaces.Invalidate(e.Screen)
}

func (c *Console) record(ctx context.Context, sess session.Session, name, action string, ids []int, err error) {
	entry := repository.ActionLog{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		UserName:  sess.UserName,
		Screen:    name,
		Action:    action,
		IDs:       ids,
		Outcome:   repository.OutcomeOK,
	}
	if err != nil {
		entry.Outcome = repository.OutcomeFailed
		entry.Error = err.Error()
	}
	if _, lerr := c.actions.CreateActionLog(ctx, entry); lerr != nil {
		c.logger.Error("failed to record action", zap.String("screen", name), zap.String("action", action), zap.Error(lerr))
	}
}

func (c *Console) publish(ctx context.Context, sess session.Session, name, action string, ids []int) {
	err := c.events.Publish(ctx, events.Event{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Screen:    name,
		Action:    action,
		IDs:       ids,
	})
	if err != nil {
		c.logger.Warn("failed to publish mutation event", zap.String("screen", name), zap.Error(err))
	}
}
