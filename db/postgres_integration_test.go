//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStoreContract(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "gedcom",
				"POSTGRES_PASSWORD": "gedcom",
				"POSTGRES_DB":       "gedcom",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("no s'ha pogut arrencar postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	database, err := NewDB(map[string]string{
		"DB_ENGINE": "postgres",
		"DB_HOST":   host,
		"DB_PORT":   port.Port(),
		"DB_USR":    "gedcom",
		"DB_PASS":   "gedcom",
		"DB_NAME":   "gedcom",
	})
	if err != nil {
		t.Fatalf("no s'ha pogut connectar: %v", err)
	}
	defer database.Close()
	runStoreContract(t, database)
}
