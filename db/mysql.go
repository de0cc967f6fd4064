package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

type MySQL struct {
	Host   string
	Port   string
	User   string
	Pass   string
	DBName string
	Conn   *sql.DB
	sqlHelper
}

func (d *MySQL) Connect() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&multiStatements=true", d.User, d.Pass, d.Host, d.Port, d.DBName)
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("error connectant a MySQL: %w", err)
	}
	if err := pingWithRetry(context.Background(), conn); err != nil {
		conn.Close()
		return fmt.Errorf("error connectant a MySQL: %w", err)
	}
	d.Conn = conn
	d.sqlHelper = newSQLHelper(conn, "mysql", "NOW()")
	logInfof("Connectat a MySQL")
	return nil
}

func (d *MySQL) Close() {
	if d.Conn != nil {
		d.Conn.Close()
	}
}

func (d *MySQL) Migrate(ctx context.Context) error {
	return migrate(ctx, d.Conn, "mysql")
}
