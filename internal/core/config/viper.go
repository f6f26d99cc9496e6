package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
// Only flags the user changed are bound; flagKeys maps names to keys.
func LoadConfig(configPath string, flags ...*pflag.Flag) (*Config, error) {
	v := viper.New()
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_batch_size", d.Server.MaxBatchSize)
	v.SetDefault("view.locale", d.View.Locale)
	v.SetDefault("view.timezone", d.View.TimeZone)
	v.SetDefault("view.expand_policy", d.View.ExpandPolicy)
	v.SetDefault("view.true_label", "")
	v.SetDefault("view.false_label", "")
	v.SetDefault("view.date_layout", d.View.DateLayout)
	v.SetDefault("view.datetime_layout", d.View.DateTimeLayout)
	v.SetDefault("export.sheet_name", d.Export.SheetName)
	v.SetDefault("database.url", "")

	// Bind environment variables with GV_ prefix
	v.SetEnvPrefix("GV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	for _, f := range flags {
		if f == nil || !f.Changed {
			continue
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag --%s: %w", f.Name, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxConnections: v.GetInt("server.max_connections"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxBatchSize:   v.GetInt("server.max_batch_size"),
		},
		View: ViewConfig{
			Locale:         v.GetString("view.locale"),
			TimeZone:       v.GetString("view.timezone"),
			ExpandPolicy:   v.GetString("view.expand_policy"),
			TrueLabel:      v.GetString("view.true_label"),
			FalseLabel:     v.GetString("view.false_label"),
			DateLayout:     v.GetString("view.date_layout"),
			DateTimeLayout: v.GetString("view.datetime_layout"),
		},
		Export: ExportConfig{
			SheetName: v.GetString("export.sheet_name"),
		},
		DatabaseURL: v.GetString("database.url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"host":          "server.host",
	"port":          "server.port",
	"db-url":        "database.url",
	"locale":        "view.locale",
	"timezone":      "view.timezone",
	"expand-policy": "view.expand_policy",
	"sheet-name":    "export.sheet_name",
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use GV_HMAC_SECRET environment variable)")
	}
	return nil
}
