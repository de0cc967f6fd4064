package db

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStoreContract(t *testing.T) {
	database, err := NewDB(map[string]string{
		"DB_ENGINE": "sqlite",
		"DB_PATH":   filepath.Join(t.TempDir(), "gedcom.db"),
	})
	if err != nil {
		t.Fatalf("no s'ha pogut obrir SQLite: %v", err)
	}
	defer database.Close()
	if database.Engine() != "sqlite" {
		t.Fatalf("motor inesperat: %s", database.Engine())
	}
	runStoreContract(t, database)
}

func TestSQLiteMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		database, err := NewDB(map[string]string{"DB_ENGINE": "sqlite", "DB_PATH": path})
		if err != nil {
			t.Fatalf("obertura %d: %v", i+1, err)
		}
		database.Close()
	}
}

func TestNewDBUnknownEngine(t *testing.T) {
	if _, err := NewDB(map[string]string{"DB_ENGINE": "oracle"}); err == nil {
		t.Fatalf("esperava error per a un motor desconegut")
	}
}

func TestFormatPlaceholders(t *testing.T) {
	got := formatPlaceholders("postgres", "SELECT * FROM t WHERE a = ? AND b = ?")
	if got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("consulta inesperada: %s", got)
	}
	if got := formatPlaceholders("mysql", "a = ?"); got != "a = ?" {
		t.Fatalf("mysql no s'ha de tocar: %s", got)
	}
}
