package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/glacierhq/glacier/internal/security"
)

// Load merges configuration from defaults, the config file, GLACIER_
// environment variables, and explicitly-set flags, in that order of
// increasing precedence. cfgFile overrides the default config path;
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultPolicyMap()
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path := findConfigFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels so key names may keep
	// their own underscores: GLACIER_CONNECTION__HOST -> connection.host,
	// GLACIER_REWRITE__TABLE_PREFIX -> rewrite.table_prefix.
	if err := k.Load(env.Provider("GLACIER_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GLACIER_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "schema":
				return "connection.schema", posflag.FlagVal(flags, f)
			case "prefix":
				return "rewrite.table_prefix", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Connection.Password = expandEnvVars(cfg.Connection.Password)
	cfg.Connection.Account = expandEnvVars(cfg.Connection.Account)

	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(Dir(), DefaultHistoryFile)
	}
	if cfg.AuditPath == "" {
		cfg.AuditPath = filepath.Join(Dir(), DefaultAuditFile)
	}

	return &cfg, nil
}

// DefaultPolicyMap returns the built-in defaults as a flat koanf map.
func DefaultPolicyMap() map[string]interface{} {
	policy := security.DefaultPolicy()
	return map[string]interface{}{
		"connection.type":                    "postgres",
		"connection.port":                    5432,
		"security.allow_all_query_types":     policy.AllowAllQueryTypes,
		"security.max_query_length":          policy.MaxQueryLength,
		"security.blocked_function_patterns": policy.BlockedFunctionPatterns,
		"security.audit_logging":             policy.AuditLogging,
		"history.max_entries":                DefaultMaxEntries,
		"export.format":                      DefaultExportFormat,
		"display.max_rows":                   DefaultMaxRows,
		"display.null_string":                DefaultNullString,
	}
}

// findConfigFile resolves the config file to read.
// Priority: explicit path > ./glacier.yaml > ~/.glacier/config.yaml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("glacier.yaml"); err == nil {
		return "glacier.yaml"
	}
	if path := DefaultConfigPath(); fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the environment value, leaving the
// pattern untouched when the variable is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}
