package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// intParam returns the integer value of key, or def when it is missing or
// not a number.
func intParam(v url.Values, key string, def int) int {
	i, err := strconv.Atoi(v.Get(key))
	if err != nil {
		return def
	}
	return i
}

// decodeJSON reads a JSON body of at most maxBytes into out. An empty body
// leaves out untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, out any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(out)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
	default:
		return fmt.Errorf("invalid body: %w", err)
	}
}

// splitPath returns the segments of path below prefix.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
