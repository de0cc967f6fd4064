package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewDB crea el motor indicat a DB_ENGINE, s'hi connecta i aplica les
// migracions si DB_MIGRATE no és "false".
func NewDB(config map[string]string) (DB, error) {
	var dbInstance DB
	engine := strings.ToLower(strings.TrimSpace(config["DB_ENGINE"]))

	switch engine {
	case "", "sqlite":
		dbInstance = &SQLite{Path: config["DB_PATH"]}
	case "postgres":
		dbInstance = &PostgreSQL{
			Host:    config["DB_HOST"],
			Port:    config["DB_PORT"],
			User:    config["DB_USR"],
			Pass:    config["DB_PASS"],
			DBName:  config["DB_NAME"],
			SSLMode: config["DB_SSLMODE"],
		}
	case "mysql":
		dbInstance = &MySQL{
			Host:   config["DB_HOST"],
			Port:   config["DB_PORT"],
			User:   config["DB_USR"],
			Pass:   config["DB_PASS"],
			DBName: config["DB_NAME"],
		}
	case "memory":
		dbInstance = NewMemory()
	default:
		return nil, fmt.Errorf("motor de BD desconegut: %s", engine)
	}

	if err := dbInstance.Connect(); err != nil {
		return nil, err
	}

	if !strings.EqualFold(config["DB_MIGRATE"], "false") {
		if err := dbInstance.Migrate(context.Background()); err != nil {
			dbInstance.Close()
			return nil, fmt.Errorf("error migrant BD %s: %w", engine, err)
		}
	}
	return dbInstance, nil
}

// pingWithRetry espera el servidor amb reintents exponencials; útil quan la
// BD arrenca alhora que el procés.
func pingWithRetry(ctx context.Context, conn *sql.DB) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := conn.PingContext(ctx)
		if err != nil {
			logInfof("BD no disponible (intent %d): %v", attempt, err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, 8), ctx))
}
