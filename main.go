package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marcmoiagese/gedcomimport/cnf"
	"github.com/marcmoiagese/gedcomimport/core"
	"github.com/marcmoiagese/gedcomimport/db"
)

const (
	envPrefix         = "GEDIMPORT"
	defaultConfigPath = "cnf/config.cfg"
)

// configKeys són les claus que es poden definir per fitxer, entorn o opció.
var configKeys = []string{
	"DB_ENGINE", "DB_PATH", "DB_HOST", "DB_PORT", "DB_USR", "DB_PASS", "DB_NAME", "DB_SSLMODE", "DB_MIGRATE",
	"LOG_LEVEL", "ENVIRONMENT",
	"IMPORT_REPLACE_MODE", "IMPORT_APPEND_OFFSET", "IMPORT_UPPERCASE_SURNAMES", "IMPORT_SKIP_LIVING",
	"IMPORT_NEWER_ONLY", "IMPORT_MEDIA", "IMPORT_LATLONG", "IMPORT_ALL_EVENTS", "IMPORT_MEDIA_ROOT",
	"IMPORT_MAX_WARNINGS",
	"IMPORT_WORKER_POLL_SECONDS", "IMPORT_WORKER_BATCH", "IMPORT_WORKER_CONCURRENCY",
	"IMPORT_WATCH_EXTENSIONS", "IMPORT_WATCH_DEBOUNCE_MS",
}

var (
	flagConfig string
	flagJSON   bool

	app *core.App
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "gedimport",
	Short:         "Importa fitxers GEDCOM a una base de dades genealògica",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		ac, err := cnf.ParseConfig(cfg)
		if err != nil {
			return err
		}
		core.SetLogLevel(ac.LogLevel)
		database, err := db.NewDB(cfg)
		if err != nil {
			return fmt.Errorf("no s'ha pogut obrir la base de dades (%s): %w", ac.DBEngine, err)
		}
		app = core.NewApp(cfg, database)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "fitxer de configuració (clau=valor o YAML; per defecte "+defaultConfigPath+")")
	rootCmd.PersistentFlags().String("db-engine", "", "motor de base de dades: sqlite, postgres, mysql o memory")
	rootCmd.PersistentFlags().String("db-path", "", "camí del fitxer SQLite")
	rootCmd.PersistentFlags().String("log-level", "", "nivell de log: silent, error, info o debug")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "sortida en JSON")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadSettings combina, de menys a més prioritat, el fitxer de configuració,
// les variables GEDIMPORT_* i les opcions de la línia d'ordres.
func loadSettings(cmd *cobra.Command) (map[string]string, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := flagConfig
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	if path != "" {
		fileCfg, err := cnf.Load(path)
		if err != nil {
			return nil, err
		}
		for k, val := range fileCfg {
			v.SetDefault(k, val)
		}
	}

	for key, flag := range map[string]string{"DB_ENGINE": "db-engine", "DB_PATH": "db-path", "LOG_LEVEL": "log-level"} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg := make(map[string]string, len(configKeys))
	for _, key := range configKeys {
		if val := v.GetString(key); val != "" {
			cfg[key] = val
		}
	}
	cnf.Config = cfg
	return cfg, nil
}

// signalContext es cancel·la amb Ctrl+C o SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
