package core

import (
	"github.com/marcmoiagese/gedcomimport/db"
)

// App encapsula dependències compartides: configuració, base de dades i cua.
type App struct {
	Config   map[string]string
	DB       db.DB
	Importer *Importer
	worker   *importWorkerState
}

func NewApp(cfg map[string]string, database db.DB) *App {
	if cfg == nil {
		cfg = map[string]string{}
	}
	return &App{
		Config:   cfg,
		DB:       database,
		Importer: NewImporter(database),
		worker:   newImportWorkerState(),
	}
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
