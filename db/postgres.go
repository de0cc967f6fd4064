package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type PostgreSQL struct {
	Host    string
	Port    string
	User    string
	Pass    string
	DBName  string
	SSLMode string
	Conn    *sql.DB
	sqlHelper
}

// DSN retorna la cadena de connexió de lib/pq.
func (p *PostgreSQL) DSN() string {
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Pass, p.DBName, ssl)
}

func (p *PostgreSQL) Connect() error {
	conn, err := sql.Open("postgres", p.DSN())
	if err != nil {
		return err
	}
	if err := pingWithRetry(context.Background(), conn); err != nil {
		conn.Close()
		return fmt.Errorf("error connectant a PostgreSQL: %w", err)
	}
	p.Conn = conn
	p.sqlHelper = newSQLHelper(conn, "postgres", "NOW()")
	logInfof("Connectat a PostgreSQL (%s:%s/%s)", p.Host, p.Port, p.DBName)
	return nil
}

func (p *PostgreSQL) Close() {
	if p.Conn != nil {
		p.Conn.Close()
	}
}

func (p *PostgreSQL) Migrate(ctx context.Context) error {
	return migrate(ctx, p.Conn, "postgres")
}
