package db

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcmoiagese/gedcomimport/cnf"
)

func logLevel() string {
	if cnf.Config == nil {
		return "info"
	}
	l := strings.ToLower(strings.TrimSpace(cnf.Config["LOG_LEVEL"]))
	if l == "" {
		return "info"
	}
	return l
}

func logInfof(format string, v ...interface{}) {
	l := logLevel()
	if l == "silent" || l == "error" {
		return
	}
	slog.Info("[DB] "+fmt.Sprintf(format, v...), "component", "db")
}

func logErrorf(format string, v ...interface{}) {
	if logLevel() == "silent" {
		return
	}
	slog.Error("[DB][ERROR] "+fmt.Sprintf(format, v...), "component", "db")
}
