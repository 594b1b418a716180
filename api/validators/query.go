package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

// ParseQueryInt returns defaultVal when key is absent. Range checks are left to the
// services so the error shape stays the same for every caller.
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseQueryID returns nil when key is absent.
func ParseQueryID(r *http.Request, key string) (*uint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// PathID reads a numeric chi URL parameter.
func PathID(r *http.Request, name string) (uint, error) {
	id, err := parseID(chi.URLParam(r, name))
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid id").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func parseID(raw string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, strconv.ErrRange
	}
	return uint(v), nil
}
