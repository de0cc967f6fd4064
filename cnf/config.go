package cnf

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YamlConfig és la forma YAML de la configuració. Es converteix a les
// mateixes claus que el format clau=valor.
type YamlConfig struct {
	LogLevel string `yaml:"log_level"`
	Database struct {
		Type     string `yaml:"type"`
		Migrate  *bool  `yaml:"migrate"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgresql"`
		MySQL struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
		} `yaml:"mysql"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"database"`
	Import struct {
		ReplaceMode  string `yaml:"replace_mode"`
		AppendOffset string `yaml:"append_offset"`
		Media        *bool  `yaml:"media"`
		LatLong      *bool  `yaml:"lat_long"`
		MediaRoot    string `yaml:"media_root"`
		MaxWarnings  int    `yaml:"max_warnings"`
	} `yaml:"import"`
	Worker struct {
		PollSeconds int `yaml:"poll_seconds"`
		Batch       int `yaml:"batch"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
}

func LoadYAML(path string) (map[string]string, error) {
	config := &YamlConfig{}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error obrint fitxer de configuració: %v", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("error decodificant YAML: %v", err)
	}

	cfg := config.Flatten()
	Config = cfg
	return cfg, nil
}

// Flatten retorna les claus no buides.
func (c *YamlConfig) Flatten() map[string]string {
	out := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	setInt := func(key string, value int) {
		if value != 0 {
			out[key] = strconv.Itoa(value)
		}
	}
	setBool := func(key string, value *bool) {
		if value != nil {
			out[key] = strconv.FormatBool(*value)
		}
	}

	set("LOG_LEVEL", c.LogLevel)
	set("DB_ENGINE", c.Database.Type)
	setBool("DB_MIGRATE", c.Database.Migrate)
	switch c.Database.Type {
	case "postgres", "postgresql":
		out["DB_ENGINE"] = "postgres"
		set("DB_HOST", c.Database.Postgres.Host)
		setInt("DB_PORT", c.Database.Postgres.Port)
		set("DB_USR", c.Database.Postgres.User)
		set("DB_PASS", c.Database.Postgres.Password)
		set("DB_NAME", c.Database.Postgres.DBName)
		set("DB_SSLMODE", c.Database.Postgres.SSLMode)
	case "mysql":
		set("DB_HOST", c.Database.MySQL.Host)
		setInt("DB_PORT", c.Database.MySQL.Port)
		set("DB_USR", c.Database.MySQL.User)
		set("DB_PASS", c.Database.MySQL.Password)
		set("DB_NAME", c.Database.MySQL.DBName)
	default:
		set("DB_PATH", c.Database.SQLite.Path)
	}

	set("IMPORT_REPLACE_MODE", c.Import.ReplaceMode)
	set("IMPORT_APPEND_OFFSET", c.Import.AppendOffset)
	setBool("IMPORT_MEDIA", c.Import.Media)
	setBool("IMPORT_LATLONG", c.Import.LatLong)
	set("IMPORT_MEDIA_ROOT", c.Import.MediaRoot)
	setInt("IMPORT_MAX_WARNINGS", c.Import.MaxWarnings)

	setInt("IMPORT_WORKER_POLL_SECONDS", c.Worker.PollSeconds)
	setInt("IMPORT_WORKER_BATCH", c.Worker.Batch)
	setInt("IMPORT_WORKER_CONCURRENCY", c.Worker.Concurrency)
	return out
}
