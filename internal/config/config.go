package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// Database describes one side of the migration.
type Database struct {
	Driver   string `yaml:"driver" toml:"driver" json:"driver"`
	DSN      string `yaml:"dsn" toml:"dsn" json:"dsn"`
	Host     string `yaml:"host" toml:"host" json:"host"`
	Port     int    `yaml:"port" toml:"port" json:"port"`
	Name     string `yaml:"name" toml:"name" json:"name"`
	User     string `yaml:"user" toml:"user" json:"user"`
	Password string `yaml:"password" toml:"password" json:"password"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode" json:"sslmode"`
}

// Config represents the application configuration
type Config struct {
	Source             Database `yaml:"source" toml:"source" json:"source"`
	Target             Database `yaml:"target" toml:"target" json:"target"`
	BatchSize          int      `yaml:"batch_size" toml:"batch_size" json:"batch_size"`
	DryRun             bool     `yaml:"dry_run" toml:"dry_run" json:"dry_run"`
	LogLevel           string   `yaml:"log_level" toml:"log_level" json:"log_level"`
	LogFormat          string   `yaml:"log_format" toml:"log_format" json:"log_format"`
	Output             string   `yaml:"output" toml:"output" json:"output"`
	StudentAssumedAge  int      `yaml:"student_assumed_age" toml:"student_assumed_age" json:"student_assumed_age"`
	Country            string   `yaml:"country" toml:"country" json:"country"`
	CountryCallingCode string   `yaml:"country_calling_code" toml:"country_calling_code" json:"country_calling_code"`
	AuditFile          string   `yaml:"audit_file" toml:"audit_file" json:"audit_file"`
	MetricsFile        string   `yaml:"metrics_file" toml:"metrics_file" json:"metrics_file"`
	MappingsFile       string   `yaml:"mappings_file" toml:"mappings_file" json:"mappings_file"`
	Webhooks           []string `yaml:"webhooks" toml:"webhooks" json:"webhooks"`

	// File is the config file that was read, if any.
	File string `yaml:"-" toml:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source:             Database{Driver: "postgres", Port: 5432},
		Target:             Database{Driver: "pgx", Port: 5432},
		BatchSize:          1000,
		LogLevel:           "info",
		Output:             "table",
		StudentAssumedAge:  12,
		Country:            "Kenya",
		CountryCallingCode: "254",
	}
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. path, or ~/.config/schoolmig/config.yaml (or config.toml)
//
// The result is validated against the embedded JSON schema.
func Load(path string) (*Config, error) {
	cfg := Default()

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if path == "" {
		path = defaultConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfigFile returns the first existing per-user config file.
func defaultConfigFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(homeDir, ".config", "schoolmig", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadFile decodes a YAML or TOML file (by extension) over cfg.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if err := applyDatabaseEnv(&cfg.Source, "SCHOOLMIG_SOURCE"); err != nil {
		return err
	}
	if err := applyDatabaseEnv(&cfg.Target, "SCHOOLMIG_TARGET"); err != nil {
		return err
	}

	if v := os.Getenv("MIGRATION_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MIGRATION_BATCH_SIZE %q: %w", v, err)
		}
		cfg.BatchSize = n
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN %q: %w", v, err)
		}
		cfg.DryRun = b
	}
	if v := os.Getenv("SCHOOLMIG_STUDENT_AGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SCHOOLMIG_STUDENT_AGE %q: %w", v, err)
		}
		cfg.StudentAssumedAge = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SCHOOLMIG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SCHOOLMIG_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("SCHOOLMIG_COUNTRY"); v != "" {
		cfg.Country = v
	}
	if v := os.Getenv("SCHOOLMIG_CALLING_CODE"); v != "" {
		cfg.CountryCallingCode = v
	}
	if v := os.Getenv("SCHOOLMIG_AUDIT_FILE"); v != "" {
		cfg.AuditFile = v
	}
	if v := os.Getenv("SCHOOLMIG_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
	}
	if v := os.Getenv("SCHOOLMIG_MAPPINGS_FILE"); v != "" {
		cfg.MappingsFile = v
	}
	if v := os.Getenv("SCHOOLMIG_WEBHOOKS"); v != "" {
		cfg.Webhooks = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.Webhooks = append(cfg.Webhooks, u)
			}
		}
	}
	return nil
}

func applyDatabaseEnv(d *Database, prefix string) error {
	if v := os.Getenv(prefix + "_DRIVER"); v != "" {
		d.Driver = v
	}
	if v := getEnvOrFile(prefix+"_DSN", prefix+"_DSN_FILE"); v != "" {
		d.DSN = v
	}
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		d.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s_PORT %q: %w", prefix, v, err)
		}
		d.Port = n
	}
	if v := os.Getenv(prefix + "_NAME"); v != "" {
		d.Name = v
	}
	if v := os.Getenv(prefix + "_USER"); v != "" {
		d.User = v
	}
	if v := getEnvOrFile(prefix+"_PASSWORD", prefix+"_PASSWORD_FILE"); v != "" {
		d.Password = v
	}
	if v := os.Getenv(prefix + "_SSLMODE"); v != "" {
		d.SSLMode = v
	}
	return nil
}

// Validate checks the configuration against the embedded JSON schema.
func (c *Config) Validate() error {
	sch, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	// re-marshal to ensure canonical interface{} decoding
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsPostgres reports whether the driver talks to PostgreSQL.
func (d Database) IsPostgres() bool {
	return d.Driver == "postgres" || d.Driver == "pgx"
}

// ConnString returns the DSN for the database. PostgreSQL DSNs are assembled
// from host, port, name, user and password when no DSN is set; for SQLite the
// name is the file path.
func (d Database) ConnString() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	if !d.IsPostgres() {
		if d.Name == "" {
			return "", fmt.Errorf("%s: no dsn or name configured", d.Driver)
		}
		return d.Name, nil
	}
	if d.Host == "" {
		return "", fmt.Errorf("%s: no dsn or host configured", d.Driver)
	}

	u := url.URL{Scheme: "postgres", Host: d.Host, Path: "/" + d.Name}
	if d.Port != 0 {
		u.Host = fmt.Sprintf("%s:%d", d.Host, d.Port)
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
