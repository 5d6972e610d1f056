package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/security"
)

// setupFile mirrors the config file layout for the wizard output. The
// password is written as a ${VAR} reference, never as a plain value.
type setupFile struct {
	Connection config.ConnectionConfig `yaml:"connection"`
	Rewrite    setupRewrite            `yaml:"rewrite"`
	Security   setupSecurity           `yaml:"security"`
}

type setupRewrite struct {
	TablePrefix string `yaml:"table_prefix"`
}

type setupSecurity struct {
	AllowAllQueryTypes      bool     `yaml:"allow_all_query_types"`
	MaxQueryLength          int      `yaml:"max_query_length"`
	AllowedSchemas          []string `yaml:"allowed_schemas,omitempty"`
	BlockedSchemas          []string `yaml:"blocked_schemas,omitempty"`
	BlockedFunctionPatterns []string `yaml:"blocked_function_patterns"`
	AuditLogging            bool     `yaml:"audit_logging"`
}

// NewSetupCommand creates the setup command: an interactive wizard that
// writes the initial config file.
func NewSetupCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the initial configuration interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.DefaultConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			return runSetupWizard(cmd.InOrStdin(), cmd.OutOrStdout(), path)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func runSetupWizard(in io.Reader, out io.Writer, path string) error {
	reader := bufio.NewReader(in)
	prompt := func(label, fallback string) string {
		if fallback != "" {
			_, _ = fmt.Fprintf(out, "%s [%s]: ", label, fallback)
		} else {
			_, _ = fmt.Fprintf(out, "%s: ", label)
		}
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return fallback
		}
		return line
	}

	_, _ = fmt.Fprintln(out, "glacier setup")
	_, _ = fmt.Fprintln(out)

	connType := prompt("Connection type (postgres/sqlite)", "postgres")

	conn := config.ConnectionConfig{Type: connType}
	if connType == "sqlite" {
		conn.Path = prompt("Database file", filepath.Join(config.Dir(), "local.db"))
	} else {
		conn.Host = prompt("Host", "localhost")
		port, err := strconv.Atoi(prompt("Port", "5432"))
		if err != nil {
			return fmt.Errorf("invalid port")
		}
		conn.Port = port
		conn.Database = prompt("Database", "")
		conn.Schema = prompt("Default schema", "public")
		conn.User = prompt("User", "")
		passwordVar := prompt("Password environment variable", "GLACIER_PASSWORD")
		conn.Password = fmt.Sprintf("${%s}", passwordVar)
	}

	prefix := prompt("Table prefix for bare names (empty disables rewriting)", "")

	policy := security.DefaultPolicy()
	if strings.EqualFold(prompt("Allow non-SELECT statements? (y/N)", "n"), "y") {
		policy.AllowAllQueryTypes = true
	}

	out2 := setupFile{
		Connection: conn,
		Rewrite:    setupRewrite{TablePrefix: prefix},
		Security: setupSecurity{
			AllowAllQueryTypes:      policy.AllowAllQueryTypes,
			MaxQueryLength:          policy.MaxQueryLength,
			BlockedFunctionPatterns: policy.BlockedFunctionPatterns,
			AuditLogging:            policy.AuditLogging,
		},
	}

	data, err := yaml.Marshal(&out2)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
	_, _ = fmt.Fprintln(out, "Run `glacier connect` to verify the connection.")
	return nil
}
