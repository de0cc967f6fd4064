package cnf

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config – Variable pública amb les opcions de configuració
var Config map[string]string

// AppConfig – Configuració tipada per facilitar l'ús
type AppConfig struct {
	DBEngine  string
	DBPath    string
	DBHost    string
	DBUser    string
	DBPass    string
	DBPort    string
	DBName    string
	DBSSLMode string
	DBMigrate bool
	LogLevel  string
	Env       string

	ImportReplaceMode  string
	ImportAppendOffset string
	ImportMedia        bool
	ImportLatLong      bool
	ImportMediaRoot    string
	ImportMaxWarnings  int

	WorkerPollSeconds int
	WorkerBatch       int
	WorkerConcurrency int
}

// Load llegeix un fitxer de configuració: YAML si l'extensió ho indica,
// clau=valor en qualsevol altre cas.
func Load(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadConfig(path)
	}
}

// LoadConfig carrega el fitxer en format clau=valor, ignorant línies buides o comentaris.
func LoadConfig(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("no s'ha pogut obrir el fitxer de configuració: %w", err)
	}
	defer file.Close()

	config := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			key := strings.ToUpper(strings.TrimSpace(parts[0]))
			value := strings.TrimSpace(parts[1])
			if value != "" {
				commentIdx := -1
				for _, marker := range []string{" #", "\t#", " ;", "\t;"} {
					if idx := strings.Index(value, marker); idx >= 0 && (commentIdx == -1 || idx < commentIdx) {
						commentIdx = idx
					}
				}
				if commentIdx >= 0 {
					value = strings.TrimSpace(value[:commentIdx])
				}
			}
			config[key] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error llegint config: %w", err)
	}

	Config = config
	return config, nil
}

// ParseConfig converteix map[string]string en AppConfig amb valors per defecte.
func ParseConfig(cfg map[string]string) (AppConfig, error) {
	ac := AppConfig{
		DBEngine:           strings.ToLower(strings.TrimSpace(cfg["DB_ENGINE"])),
		DBPath:             cfg["DB_PATH"],
		LogLevel:           strings.TrimSpace(cfg["LOG_LEVEL"]),
		Env:                strings.TrimSpace(cfg["ENVIRONMENT"]),
		DBHost:             cfg["DB_HOST"],
		DBUser:             cfg["DB_USR"],
		DBPass:             cfg["DB_PASS"],
		DBPort:             cfg["DB_PORT"],
		DBName:             cfg["DB_NAME"],
		DBSSLMode:          strings.TrimSpace(cfg["DB_SSLMODE"]),
		DBMigrate:          true,
		ImportReplaceMode:  strings.TrimSpace(cfg["IMPORT_REPLACE_MODE"]),
		ImportAppendOffset: strings.TrimSpace(cfg["IMPORT_APPEND_OFFSET"]),
		ImportMedia:        true,
		ImportLatLong:      true,
		ImportMediaRoot:    strings.TrimSpace(cfg["IMPORT_MEDIA_ROOT"]),
	}

	if ac.DBEngine == "" {
		ac.DBEngine = "sqlite"
	}
	switch ac.DBEngine {
	case "sqlite", "postgres", "mysql", "memory":
	default:
		return ac, fmt.Errorf("DB_ENGINE desconegut: %q", ac.DBEngine)
	}
	if ac.DBPath == "" {
		ac.DBPath = "./gedcom.db"
	}
	if ac.DBSSLMode == "" {
		ac.DBSSLMode = "disable"
	}
	if ac.LogLevel == "" {
		ac.LogLevel = "info"
	}
	if ac.Env == "" {
		ac.Env = os.Getenv("ENVIRONMENT")
		if ac.Env == "" {
			ac.Env = "development"
		}
	}
	if ac.ImportReplaceMode == "" {
		ac.ImportReplaceMode = "replace_all"
	}
	if ac.ImportAppendOffset == "" {
		ac.ImportAppendOffset = "auto"
	}

	var err error
	if ac.DBMigrate, err = parseBool(cfg, "DB_MIGRATE", ac.DBMigrate); err != nil {
		return ac, err
	}
	if ac.ImportMedia, err = parseBool(cfg, "IMPORT_MEDIA", ac.ImportMedia); err != nil {
		return ac, err
	}
	if ac.ImportLatLong, err = parseBool(cfg, "IMPORT_LATLONG", ac.ImportLatLong); err != nil {
		return ac, err
	}
	if ac.ImportMaxWarnings, err = parseInt(cfg, "IMPORT_MAX_WARNINGS", 500); err != nil {
		return ac, err
	}
	if ac.WorkerPollSeconds, err = parseInt(cfg, "IMPORT_WORKER_POLL_SECONDS", 5); err != nil {
		return ac, err
	}
	if ac.WorkerBatch, err = parseInt(cfg, "IMPORT_WORKER_BATCH", 10); err != nil {
		return ac, err
	}
	if ac.WorkerConcurrency, err = parseInt(cfg, "IMPORT_WORKER_CONCURRENCY", 2); err != nil {
		return ac, err
	}

	return ac, nil
}

func parseBool(cfg map[string]string, key string, fallback bool) (bool, error) {
	v, ok := cfg[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
	if err != nil {
		return fallback, fmt.Errorf("%s: valor booleà invàlid %q", key, v)
	}
	return b, nil
}

func parseInt(cfg map[string]string, key string, fallback int) (int, error) {
	v, ok := cfg[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback, fmt.Errorf("%s: enter invàlid %q", key, v)
	}
	return n, nil
}
