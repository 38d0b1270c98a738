package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envKeyReplacer maps nested config keys to environment variable names,
// e.g. azure.client_id -> GRAPHMAIL_AZURE_CLIENT_ID.
var envKeyReplacer = strings.NewReplacer(".", "_")

// defaultScopes are the Microsoft Graph permissions requested during the
// device-code flow.
var defaultScopes = []string{
	"https://graph.microsoft.com/Mail.Read",
	"https://graph.microsoft.com/User.Read",
	"offline_access",
}

// AzureConfig holds the Azure AD application settings used for the
// device-code flow.
type AzureConfig struct {
	// ClientID is the Azure AD application (client) ID. Required for any
	// authenticated command.
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// Tenant is the Azure AD tenant ID, or "common" for personal accounts.
	Tenant string `mapstructure:"tenant" yaml:"tenant"`

	// Scopes are the Graph permission scopes to request.
	Scopes []string `mapstructure:"scopes" yaml:"scopes"`
}

// DatabaseConfig holds the local cache database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// StorageConfig holds file locations for downloaded content and
// authentication state.
type StorageConfig struct {
	AttachmentsDir string `mapstructure:"attachments_dir" yaml:"attachments_dir"`
	TokenFile      string `mapstructure:"token_file" yaml:"token_file"`
	AccountFile    string `mapstructure:"account_file" yaml:"account_file"`
}

// PayrollConfig holds the default match criteria for the payroll
// download workflow.
type PayrollConfig struct {
	Sender  string `mapstructure:"sender" yaml:"sender"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the top-level application configuration. It is constructed
// once at process start and passed explicitly to every component that
// needs it.
type Config struct {
	Azure    AzureConfig    `mapstructure:"azure" yaml:"azure"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Payroll  PayrollConfig  `mapstructure:"payroll" yaml:"payroll"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the default configuration file location,
// ~/.graphmail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(dataDir(), "config.yaml")
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".graphmail"
	}
	return filepath.Join(home, ".graphmail")
}

func defaultConfig() *Config {
	dir := dataDir()
	return &Config{
		Azure: AzureConfig{
			Tenant: "common",
			Scopes: append([]string(nil), defaultScopes...),
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "emails.db"),
		},
		Storage: StorageConfig{
			AttachmentsDir: filepath.Join(dir, "attachments"),
			TokenFile:      filepath.Join(dir, "tokens.json"),
			AccountFile:    filepath.Join(dir, "account.json"),
		},
		Payroll: PayrollConfig{
			Sender:  "noreply.laboral.bcn@bdo.es",
			Subject: "Hojas de Salario",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given YAML file path using Viper,
// applying environment overrides (GRAPHMAIL_ prefix, e.g.
// GRAPHMAIL_AZURE_CLIENT_ID). A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultConfig()
	// Every key needs a default so Unmarshal sees environment overrides.
	v.SetDefault("azure.client_id", "")
	v.SetDefault("azure.tenant", defaults.Azure.Tenant)
	v.SetDefault("azure.scopes", defaults.Azure.Scopes)
	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("storage.attachments_dir", defaults.Storage.AttachmentsDir)
	v.SetDefault("storage.token_file", defaults.Storage.TokenFile)
	v.SetDefault("storage.account_file", defaults.Storage.AccountFile)
	v.SetDefault("payroll.sender", defaults.Payroll.Sender)
	v.SetDefault("payroll.subject", defaults.Payroll.Subject)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetEnvPrefix("graphmail")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// EnsureDirectories creates the directories the tool writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.AttachmentsDir,
		filepath.Dir(c.Storage.TokenFile),
		filepath.Dir(c.Storage.AccountFile),
		filepath.Dir(c.Database.Path),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
