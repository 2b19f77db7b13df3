// Package backendtest runs an in-memory facility API for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Row is one stored entity. It must carry an "id".
type Row map[string]any

func (r Row) id() int {
	switch v := r["id"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Request is a call the server received.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type table struct {
	active  map[int]Row
	deleted map[int]Row
}

// Server serves every resource under "/api/{resource}/...".
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tables   map[string]*table
	requests []Request
	failing  map[string]string
	token    string
}

func New(t testing.TB) *Server {
	s := &Server{tables: map[string]*table{}, failing: map[string]string{}, token: "test-token"}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

// BaseURL is the value for backend.Options.BaseURL.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Token is the token issued by account/login.
func (s *Server) Token() string { return s.token }

// Seed stores rows under resource.
func (s *Server) Seed(resource string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(resource)
	for _, r := range rows {
		t.active[r.id()] = r
	}
}

// SeedN stores n rows named "{prefix} {i}" with ids 1..n.
func (s *Server) SeedN(resource, prefix string, n int) {
	rows := make([]Row, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, Row{"id": i, "name": fmt.Sprintf("%s %d", prefix, i)})
	}
	s.Seed(resource, rows...)
}

// Fail makes calls whose path (after /api/) starts with prefix answer with
// succeeded=false and message.
func (s *Server) Fail(prefix, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[prefix] = message
}

func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = map[string]string{}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls matched method and the path prefix.
func (s *Server) Count(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// Active returns the ids of the non-deleted rows of resource.
func (s *Server) Active(resource string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.table(resource).active)
}

// Deleted returns the ids of the soft-deleted rows of resource.
func (s *Server) Deleted(resource string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.table(resource).deleted)
}

func (s *Server) table(resource string) *table {
	t, ok := s.tables[resource]
	if !ok {
		t = &table{active: map[int]Row{}, deleted: map[int]Row{}}
		s.tables[resource] = t
	}
	return t
}

func sortedIDs(m map[int]Row) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func write(w http.ResponseWriter, status int, ok bool, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"succeeded": ok, "message": msg, "data": data})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")
	var body []byte
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		body, _ = io.ReadAll(r.Body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	for prefix, msg := range s.failing {
		if strings.HasPrefix(path, prefix) {
			s.mu.Unlock()
			write(w, http.StatusOK, false, msg, nil)
			return
		}
	}
	s.mu.Unlock()

	if path == "account/login" {
		var form struct {
			UserName string `json:"userName"`
			Password string `json:"password"`
		}
		_ = json.Unmarshal(body, &form)
		if form.Password != "secret" {
			write(w, http.StatusOK, false, "invalid credentials", nil)
			return
		}
		role := "Admin"
		if form.UserName != "admin" {
			role = "Supervisor"
		}
		write(w, http.StatusOK, true, "", map[string]any{"token": s.token, "id": 1, "userName": form.UserName, "role": role})
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		write(w, http.StatusNotFound, false, "not found", nil)
		return
	}
	resource, rest := parts[0], parts[1:]

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(resource)

	switch {
	case r.Method == http.MethodGet && rest[0] == "pagination":
		s.page(w, r, t.active)
	case r.Method == http.MethodGet && rest[0] == "deleted" && len(rest) == 2:
		s.page(w, r, t.deleted)
	case r.Method == http.MethodGet && len(rest) == 1:
		id, _ := strconv.Atoi(rest[0])
		row, ok := t.active[id]
		if !ok {
			write(w, http.StatusNotFound, false, "not found", nil)
			return
		}
		write(w, http.StatusOK, true, "", row)
	case r.Method == http.MethodPost && rest[0] == "create":
		id := len(t.active) + len(t.deleted) + 1
		row := Row{"id": id}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				row[strings.ToLower(k[:1])+k[1:]] = v[0]
			}
		} else {
			_ = json.Unmarshal(body, &row)
			row["id"] = id
		}
		t.active[id] = row
		write(w, http.StatusOK, true, "", id)
	case r.Method == http.MethodPut && rest[0] == "edit":
		write(w, http.StatusOK, true, "", nil)
	case r.Method == http.MethodDelete && rest[0] == "delete" && len(rest) == 2:
		id, _ := strconv.Atoi(rest[1])
		if row, ok := t.active[id]; ok {
			delete(t.active, id)
			t.deleted[id] = row
		}
		write(w, http.StatusOK, true, "", nil)
	case r.Method == http.MethodDelete && rest[0] == "delete":
		var req struct {
			IDs []int `json:"ids"`
		}
		_ = json.Unmarshal(body, &req)
		for _, id := range req.IDs {
			if row, ok := t.active[id]; ok {
				delete(t.active, id)
				t.deleted[id] = row
			}
		}
		write(w, http.StatusOK, true, "", nil)
	case r.Method == http.MethodPut && rest[0] == "restore" && len(rest) == 2:
		id, _ := strconv.Atoi(rest[1])
		if row, ok := t.deleted[id]; ok {
			delete(t.deleted, id)
			t.active[id] = row
		}
		write(w, http.StatusOK, true, "", nil)
	case r.Method == http.MethodDelete && rest[0] == "forcedelete" && len(rest) == 2:
		id, _ := strconv.Atoi(rest[1])
		delete(t.deleted, id)
		delete(t.active, id)
		write(w, http.StatusOK, true, "", nil)
	case r.Method == http.MethodPost && rest[0] == "assign":
		write(w, http.StatusOK, true, "", nil)
	default:
		write(w, http.StatusNotFound, false, "not found", nil)
	}
}

// page filters rows by Search (name substring) and by every other query
// key, compared against the row field of the same name with a lower-case
// first letter.
func (s *Server) page(w http.ResponseWriter, r *http.Request, rows map[int]Row) {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("PageNumber"))
	size, _ := strconv.Atoi(q.Get("PageSize"))
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = 10
	}

	var matched []Row
	for _, id := range sortedIDs(rows) {
		row := rows[id]
		if term := q.Get("Search"); term != "" {
			name, _ := row["name"].(string)
			if !strings.Contains(strings.ToLower(name), strings.ToLower(term)) {
				continue
			}
		}
		ok := true
		for key, vals := range q {
			if key == "PageNumber" || key == "PageSize" || key == "Search" {
				continue
			}
			field := strings.ToLower(key[:1]) + key[1:]
			if fmt.Sprint(row[field]) != vals[0] {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}

	pages := (len(matched) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	start := (number - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	data := matched[start:end]
	if data == nil {
		data = []Row{}
	}
	write(w, http.StatusOK, true, "", map[string]any{
		"currentPage":     number,
		"totalPages":      pages,
		"totalCount":      len(matched),
		"pageSize":        size,
		"hasPreviousPage": number > 1,
		"hasNextPage":     number < pages,
		"data":            data,
	})
}
