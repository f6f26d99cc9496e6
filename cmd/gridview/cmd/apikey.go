package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/gridview/internal/core/auth"
	"github.com/solatis/gridview/internal/core/config"
	"github.com/solatis/gridview/internal/core/db"
	"github.com/solatis/gridview/internal/types"
	"github.com/spf13/cobra"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage site API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a site (the key is printed once)",
	RunE:  runAPIKeyCreate,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyRevokeCmd)

	apikeyCmd.PersistentFlags().String("site", "", "site ID owning the key")
	apikeyCreateCmd.Flags().String("name", "", "key description")
	apikeyCreateCmd.Flags().String("site-name", "", "display name used when the site is created")
	apikeyCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (required when several are configured)")
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	site, _ := cmd.Flags().GetString("site")
	name, _ := cmd.Flags().GetString("name")
	siteName, _ := cmd.Flags().GetString("site-name")
	secretID, _ := cmd.Flags().GetString("secret-id")
	if site == "" {
		return fmt.Errorf("--site required")
	}

	secrets, err := configuredSecrets()
	if err != nil {
		return err
	}
	secretID, secret, err := pickSecret(secrets, secretID)
	if err != nil {
		return err
	}

	return withDatabase(cmd, func(ctx context.Context, database *sqlx.DB) error {
		if err := db.RequireMigrated(ctx, database); err != nil {
			return err
		}
		store, err := db.NewStore(database)
		if err != nil {
			return err
		}
		if err := store.EnsureSite(ctx, types.SiteID(site), siteName); err != nil {
			return err
		}

		key, hash, err := auth.GenerateAPIKey(secretID, secret)
		if err != nil {
			return err
		}
		stored, err := store.InsertAPIKey(ctx, db.APIKey{
			SiteID:   types.SiteID(site),
			Name:     name,
			SecretID: secretID,
			KeyHash:  hash,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key_id: %s\n", stored.ID)
		fmt.Fprintf(out, "site_id:    %s\n", stored.SiteID)
		fmt.Fprintf(out, "api_key:    %s\n", key)
		return nil
	})
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	site, _ := cmd.Flags().GetString("site")
	if site == "" {
		return fmt.Errorf("--site required")
	}

	return withDatabase(cmd, func(ctx context.Context, database *sqlx.DB) error {
		store, err := db.NewStore(database)
		if err != nil {
			return err
		}
		found, err := store.RevokeAPIKey(ctx, types.SiteID(site), args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no active API key %s for site %s", args[0], site)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
		return nil
	})
}

// configuredSecrets loads the HMAC secrets and requires at least one.
func configuredSecrets() (map[string][]byte, error) {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return nil, fmt.Errorf("no HMAC secrets configured (set GV_HMAC_SECRET environment variable)")
	}
	return secrets, nil
}

// pickSecret selects the signing secret: the requested ID, or the only one.
func pickSecret(secrets map[string][]byte, secretID string) (string, []byte, error) {
	if secretID != "" {
		secret, ok := secrets[secretID]
		if !ok {
			return "", nil, fmt.Errorf("secret %s is not configured", secretID)
		}
		return secretID, secret, nil
	}
	if len(secrets) != 1 {
		ids := make([]string, 0, len(secrets))
		for id := range secrets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return "", nil, fmt.Errorf("%d secrets configured, pass --secret-id (one of %v)", len(secrets), ids)
	}
	for id, secret := range secrets {
		return id, secret, nil
	}
	return "", nil, fmt.Errorf("no HMAC secrets configured")
}
