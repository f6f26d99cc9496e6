// Package config provides configuration management for gridview commands.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
	"golang.org/x/text/language"
)

// Config is the complete gridview configuration.
type Config struct {
	Server      ServerConfig
	View        ViewConfig
	Export      ExportConfig
	DatabaseURL string
}

// ServerConfig holds configuration for the gRPC view service.
type ServerConfig struct {
	Host           string
	Port           int
	MaxConnections int
	RequestTimeout time.Duration
	MaxBatchSize   int
}

// ViewConfig controls how values are formatted, sorted and how group
// expand state is carried between resolutions.
type ViewConfig struct {
	Locale         string
	TimeZone       string
	ExpandPolicy   string
	TrueLabel      string
	FalseLabel     string
	DateLayout     string
	DateTimeLayout string
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	SheetName string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			MaxConnections: 1000,
			RequestTimeout: 30 * time.Second,
			MaxBatchSize:   1000,
		},
		View: ViewConfig{
			Locale:         "fr-FR",
			TimeZone:       "UTC",
			ExpandPolicy:   resolver.ExpandPolicyReference.String(),
			DateLayout:     resolver.DefaultDateLayout,
			DateTimeLayout: resolver.DefaultDateTimeLayout,
		},
		Export: ExportConfig{
			SheetName: "Export",
		},
	}
}

// Language parses the configured locale.
func (v ViewConfig) Language() (language.Tag, error) {
	tag, err := language.Parse(v.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", v.Locale, err)
	}
	return tag, nil
}

// Location loads the configured time zone.
func (v ViewConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(v.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", v.TimeZone, err)
	}
	return loc, nil
}

// NewResolver builds a resolver from the view settings.
func (v ViewConfig) NewResolver() (*resolver.Resolver, error) {
	tag, err := v.Language()
	if err != nil {
		return nil, err
	}
	loc, err := v.Location()
	if err != nil {
		return nil, err
	}
	policy, err := resolver.ParseExpandPolicy(v.ExpandPolicy)
	if err != nil {
		return nil, err
	}
	formatter := resolver.NewDisplayFormatter(tag,
		resolver.WithLocation(loc),
		resolver.WithDateLayouts(v.DateLayout, v.DateTimeLayout),
		resolver.WithBooleanLabels(v.TrueLabel, v.FalseLabel),
	)
	return resolver.New(
		resolver.WithLocale(tag),
		resolver.WithTimeZone(loc),
		resolver.WithExpandPolicy(policy),
		resolver.WithFormatter(formatter),
	), nil
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports GV_HMAC_SECRET (single) and GV_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("GV_HMAC_SECRET"); val != "" {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("GV_HMAC_SECRET: %w", err)
		}
		secrets[secretID] = decoded
	}

	// Multiple secrets enable rotation: old and new keys valid during migration
	for i := 1; ; i++ {
		key := fmt.Sprintf("GV_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check GV_HMAC_SECRET and GV_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}

// validateConfig checks ranges and that every view setting can be applied.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxBatchSize <= 0 || cfg.Server.MaxBatchSize > types.MaxRecordsPerRequest {
		return fmt.Errorf("max_batch_size must be between 1 and %d, got %d", types.MaxRecordsPerRequest, cfg.Server.MaxBatchSize)
	}
	if _, err := cfg.View.Language(); err != nil {
		return err
	}
	if _, err := cfg.View.Location(); err != nil {
		return err
	}
	if _, err := resolver.ParseExpandPolicy(cfg.View.ExpandPolicy); err != nil {
		return err
	}
	if len(cfg.Export.SheetName) > 31 || strings.ContainsAny(cfg.Export.SheetName, `:\/?*[]`) {
		return fmt.Errorf("export sheet_name %q must be at most 31 characters without : \\ / ? * [ ]", cfg.Export.SheetName)
	}
	return nil
}
