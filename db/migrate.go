package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

func migrate(ctx context.Context, conn *sql.DB, style string) error {
	var dialect goose.Dialect
	switch style {
	case "sqlite":
		dialect = goose.DialectSQLite3
	case "postgres":
		dialect = goose.DialectPostgres
	case "mysql":
		dialect = goose.DialectMySQL
	default:
		return fmt.Errorf("migracions: motor desconegut %s", style)
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+style)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, conn, sub)
	if err != nil {
		return fmt.Errorf("migracions: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migracions: %w", err)
	}
	for _, r := range results {
		logInfof("Migració aplicada: %s (%s)", r.Source.Path, r.Duration)
	}
	return nil
}
