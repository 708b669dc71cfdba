// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ruleflow-io/ruleflow/pkg/persistence"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/file"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/postgresql"
)

// NewPersistence creates a persistence backend from the database URL.
// postgres:// and postgresql:// URLs select the PostgreSQL backend;
// anything else is treated as a file-store root path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
