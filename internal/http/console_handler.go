package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cleantech-console/internal/backend"
	"cleantech-console/internal/domain"
	"cleantech-console/internal/export"
	"cleantech-console/internal/listing"
	"cleantech-console/internal/repository"
	"cleantech-console/internal/service"
	"cleantech-console/internal/session"

	"go.uber.org/zap"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

// ConsoleHandler serves the console API on top of service.Console.
type ConsoleHandler struct {
	console    *service.Console
	sessions   *session.Store
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewConsoleHandler(console *service.Console, sessions *session.Store, sessionTTL time.Duration, logger *zap.Logger) *ConsoleHandler {
	return &ConsoleHandler{
		console:    console,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Session handles login (POST) and logout (DELETE).
func (h *ConsoleHandler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.login(w, r)
	case http.MethodDelete:
		h.withSession(h.logout)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *ConsoleHandler) login(w http.ResponseWriter, r *http.Request) {
	var form backend.LoginForm
	if err := decodeJSON(w, r, maxBodyBytes, &form); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	sess, err := h.console.Login(r.Context(), form)
	if err != nil {
		// A rejected login is not an expired session.
		status, _ := errorStatus(err)
		if status == http.StatusUnauthorized {
			status = http.StatusOK
		}
		writeJSON(w, status, Fail(err.Error()))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"sessionId": sess.ID,
		"userId":    sess.UserID,
		"userName":  sess.UserName,
		"role":      sess.Role,
	}))
}

func (h *ConsoleHandler) logout(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := h.console.Logout(r.Context(), sess); err != nil {
		h.logger.Error("logout failed", zap.String("session_id", sess.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("logout failed"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *ConsoleHandler) ListScreens(w http.ResponseWriter, r *http.Request, _ session.Session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.console.Screens()))
}

// screenRequest is the body of every screen action; each action reads the
// fields it needs.
type screenRequest struct {
	Term     string          `json:"term"`
	Page     int             `json:"page"`
	Size     int             `json:"size"`
	Filters  listing.Filters `json:"filters"`
	ID       int             `json:"id"`
	Selected bool            `json:"selected"`
	Enabled  bool            `json:"enabled"`
	Confirm  bool            `json:"confirm"`
}

// Screen dispatches /screens/{screen}[/{action}].
func (h *ConsoleHandler) Screen(w http.ResponseWriter, r *http.Request, sess session.Session) {
	parts := splitPath(r.URL.Path, apiPrefix+"/screens")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	name := parts[0]
	ctx := r.Context()

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v, err := h.console.View(ctx, sess, name)
		h.writeResult(w, r, v, err)
		return
	}

	action := parts[1]
	if action == "export" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, sess, name)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req screenRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	var (
		v   any
		err error
	)
	switch action {
	case "search":
		v, err = h.console.Search(ctx, sess, name, req.Term)
	case "page":
		v, err = h.console.GoToPage(ctx, sess, name, req.Page)
	case "page-size":
		v, err = h.console.ResizePage(ctx, sess, name, req.Size)
	case "filters":
		v, err = h.console.ApplyFilters(ctx, sess, name, req.Filters)
	case "select":
		v, err = h.console.ToggleSelect(ctx, sess, name, req.ID, req.Selected)
	case "select-all":
		v, err = h.console.SelectAll(ctx, sess, name, req.Selected)
	case "collapse":
		v, err = h.console.ToggleCollapse(ctx, sess, name, req.ID)
	case "reload":
		v, err = h.console.Reload(ctx, sess, name)
	case "trash":
		v, err = h.console.SetTrash(ctx, sess, name, req.Enabled)
	case "delete":
		v, err = h.console.Delete(ctx, sess, name, req.ID, req.Confirm)
	case "bulk-delete":
		v, err = h.console.BulkDelete(ctx, sess, name, req.Confirm)
	case "restore":
		v, err = h.console.Restore(ctx, sess, name, req.ID)
	case "force-delete":
		v, err = h.console.ForceDelete(ctx, sess, name, req.ID, req.Confirm)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeResult(w, r, v, err)
}

func (h *ConsoleHandler) export(w http.ResponseWriter, r *http.Request, sess session.Session, name string) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	scope, err := service.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	doc, err := h.console.Export(r.Context(), sess, name, format, scope)
	if err != nil {
		h.writeResult(w, r, nil, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	if format != export.FormatPrint {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

type locationRequest struct {
	Level  string `json:"level"`
	ID     int    `json:"id"`
	Screen string `json:"screen"`
}

// Locations serves the cascading picker: GET returns it, POST select/clear
// change it and POST apply filters a screen by it.
func (h *ConsoleHandler) Locations(w http.ResponseWriter, r *http.Request, sess session.Session) {
	parts := splitPath(r.URL.Path, apiPrefix+"/locations")
	ctx := r.Context()

	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v, err := h.console.Picker(ctx, sess)
		h.writeResult(w, r, v, err)
		return
	}
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req locationRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	switch parts[0] {
	case "select":
		level, err := listing.ParseLevel(req.Level)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		v, err := h.console.PickerSelect(ctx, sess, level, req.ID)
		h.writeResult(w, r, v, err)
	case "clear":
		level := listing.LevelNone
		if req.Level != "" {
			l, err := listing.ParseLevel(req.Level)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
				return
			}
			level = l
		}
		writeJSON(w, http.StatusOK, Ok(h.console.PickerClear(ctx, sess, level)))
	case "apply":
		if req.Screen == "" {
			writeJSON(w, http.StatusBadRequest, Fail("screen is required"))
			return
		}
		v, err := h.console.PickerApply(ctx, sess, req.Screen)
		h.writeResult(w, r, v, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Questions creates (POST) or updates (PUT) a question from a multipart form
// with an optional "image" file.
func (h *ConsoleHandler) Questions(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	form, err := questionForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	var v any
	if r.Method == http.MethodPost {
		v, err = h.console.CreateQuestion(r.Context(), sess, form)
	} else {
		v, err = h.console.UpdateQuestion(r.Context(), sess, form)
	}
	h.writeResult(w, r, v, err)
}

func questionForm(r *http.Request) (domain.QuestionForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return domain.QuestionForm{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	form := domain.QuestionForm{
		ID:     intParam(r.MultipartForm.Value, "id", 0),
		NameEn: r.FormValue("nameEn"),
		NameAr: r.FormValue("nameAr"),
		Type:   domain.QuestionType(r.FormValue("type")),
	}
	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return form, nil
	}
	if err != nil {
		return domain.QuestionForm{}, fmt.Errorf("invalid image: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return domain.QuestionForm{}, fmt.Errorf("failed to read image: %w", err)
	}
	form.ImageName = header.Filename
	form.Image = data
	return form, nil
}

type assignRequest struct {
	SectionID int `json:"sectionId"`
	PointID   int `json:"pointId"`
}

// AssignQuestions binds the questions selected on the question screen.
func (h *ConsoleHandler) AssignQuestions(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req assignRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	v, err := h.console.AssignQuestions(r.Context(), sess, req.SectionID, req.PointID)
	h.writeResult(w, r, v, err)
}

// ActionLogs lists the action log (administrators only).
func (h *ConsoleHandler) ActionLogs(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	filter := repository.ActionLogFilters{
		Screen: q.Get("screen"),
		Action: q.Get("action"),
		UserID: intParam(q, "user_id", 0),
	}
	page := intParam(q, "page", 1)
	size := intParam(q, "size", 50)

	items, total, err := h.console.ActionLogs(r.Context(), sess, filter, page, size)
	if err != nil {
		h.writeResult(w, r, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}
