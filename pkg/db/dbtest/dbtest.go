// Package dbtest opens throwaway sqlite databases carrying the full schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/ideasdevops/lead-ia/pkg/config"
	"github.com/ideasdevops/lead-ia/pkg/db"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
)

// New returns a migrated in-memory database private to the test.
func New(t testing.TB) *db.Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
