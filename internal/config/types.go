// Package config loads the glacier configuration from its YAML file,
// environment variables, and command-line flags, merged in that order
// of increasing precedence.
package config

import (
	"os"
	"path/filepath"

	"github.com/glacierhq/glacier/internal/security"
)

// ConnectionConfig describes how to reach the warehouse.
type ConnectionConfig struct {
	// Type selects the warehouse adapter: "postgres" or "sqlite".
	Type string `koanf:"type"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Schema   string `koanf:"schema"`
	User     string `koanf:"user"`

	// Password supports ${VAR} expansion so secrets can live in the
	// environment instead of the config file.
	Password string `koanf:"password"`

	// Account, Warehouse, and Role are hosted-warehouse settings,
	// unused by the sqlite adapter.
	Account   string `koanf:"account"`
	Warehouse string `koanf:"warehouse"`
	Role      string `koanf:"role"`

	// Path is the database file for the sqlite adapter.
	Path string `koanf:"path"`
}

// RewriteConfig controls the prefix rewriter.
type RewriteConfig struct {
	// TablePrefix is prepended to every bare table name. Empty
	// disables rewriting.
	TablePrefix string `koanf:"table_prefix"`
}

// HistoryConfig controls the on-disk query history store.
type HistoryConfig struct {
	Path       string `koanf:"path"`
	MaxEntries int    `koanf:"max_entries"`
}

// ExportConfig holds result export defaults.
type ExportConfig struct {
	Dir    string `koanf:"dir"`
	Format string `koanf:"format"`
}

// DisplayConfig holds terminal rendering settings.
type DisplayConfig struct {
	MaxRows    int    `koanf:"max_rows"`
	NullString string `koanf:"null_string"`
}

// Config is the full glacier configuration.
type Config struct {
	Connection ConnectionConfig `koanf:"connection"`
	Rewrite    RewriteConfig    `koanf:"rewrite"`
	Security   security.Policy  `koanf:"security"`
	History    HistoryConfig    `koanf:"history"`
	Export     ExportConfig     `koanf:"export"`
	Display    DisplayConfig    `koanf:"display"`
	AuditPath  string           `koanf:"audit_path"`
	Verbose    bool             `koanf:"verbose"`
}

const (
	DefaultConfigDirName = ".glacier"
	DefaultConfigFile    = "config.yaml"
	DefaultHistoryFile   = "history.db"
	DefaultAuditFile     = "audit.jsonl"
	DefaultMaxRows       = 1000
	DefaultMaxEntries    = 1000
	DefaultNullString    = "NULL"
	DefaultExportFormat  = "csv"
)

// Dir returns the glacier state directory, ~/.glacier by default. The
// GLACIER_HOME environment variable overrides it.
func Dir() string {
	if dir := os.Getenv("GLACIER_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigDirName
	}
	return filepath.Join(home, DefaultConfigDirName)
}

// DefaultConfigPath returns the path of the config file inside Dir.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), DefaultConfigFile)
}
