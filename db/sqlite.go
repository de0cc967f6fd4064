package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	Path string
	Conn *sql.DB
	sqlHelper
}

func (d *SQLite) Connect() error {
	path := d.Path
	if path == "" {
		path = "./gedcom.db"
	}
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("error obrint SQLite: %w", err)
	}
	// Una sola connexió: amb ":memory:" cada connexió seria una base de dades diferent.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("error connectant a SQLite: %w", err)
	}
	d.Conn = conn
	d.sqlHelper = newSQLHelper(conn, "sqlite", "CURRENT_TIMESTAMP")
	logInfof("Connectat a SQLite (%s)", path)
	return nil
}

func (d *SQLite) Close() {
	if d.Conn != nil {
		d.Conn.Close()
	}
}

func (d *SQLite) Migrate(ctx context.Context) error {
	return migrate(ctx, d.Conn, "sqlite")
}
