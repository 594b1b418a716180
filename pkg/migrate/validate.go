package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	markerUp             = "-- +goose Up"
	markerDown           = "-- +goose Down"
	markerStatementBegin = "-- +goose StatementBegin"
	markerStatementEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks migration filenames, version uniqueness and goose annotations.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		if err := validateContent(string(b)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func validateContent(txt string) error {
	up := strings.Index(txt, markerUp)
	down := strings.Index(txt, markerDown)
	switch {
	case up < 0:
		return fmt.Errorf("missing %q", markerUp)
	case down < 0:
		return fmt.Errorf("missing %q", markerDown)
	case down < up:
		return fmt.Errorf("%q must precede %q", markerUp, markerDown)
	}
	if strings.Count(txt, markerStatementBegin) != strings.Count(txt, markerStatementEnd) {
		return fmt.Errorf("unbalanced StatementBegin/StatementEnd annotations")
	}
	return nil
}
