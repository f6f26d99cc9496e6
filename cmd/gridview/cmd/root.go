package cmd

import (
	"fmt"
	"log/slog"

	"github.com/solatis/gridview/internal/core/config"
	"github.com/solatis/gridview/internal/core/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is the gridview release version.
const Version = "0.1.0"

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "gridview",
	Short:         "gridview list view engine",
	Long:          `gridview filters, sorts and groups list records the way a SharePoint list view does, and serves resolved views over gRPC.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Setup(cmd.ErrOrStderr(), logLevel, logFormat)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "json", "log format (json, text, terminal)")
	flags.String("locale", "", "locale used to format and sort values (e.g. fr-FR)")
	flags.String("timezone", "", "IANA time zone used to display dates")
	flags.String("expand-policy", "", "group expand policy (reference, group-default)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration with the command's changed flags applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var flags []*pflag.Flag
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		flags = append(flags, f)
	})
	cfg, err := config.LoadConfig(configFile, flags...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Debug("configuration loaded",
		"config_file", configFile,
		"locale", cfg.View.Locale,
		"timezone", cfg.View.TimeZone,
		"expand_policy", cfg.View.ExpandPolicy)
	return cfg, nil
}

// requireDatabaseURL returns the configured database URL or an error.
func requireDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("--db-url or GV_DATABASE_URL required")
	}
	return cfg.DatabaseURL, nil
}
