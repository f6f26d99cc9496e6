package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/gridview/internal/core/api"
	"github.com/spf13/cobra"
)

var (
	resolveFlags  gridFlags
	resolveOutput string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a view over a records file and print the result",
	Example: `  gridview resolve --view items.yaml --records items.json --key-path id
  gridview resolve --view items.yaml --records items.json --group location --expand 0_Nantes
  gridview resolve --view items.yaml --records items.json --filter done=Vrai --output json`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveFlags.register(resolveCmd)
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "tree", "output format (tree, json)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	r, err := cfg.View.NewResolver()
	if err != nil {
		return err
	}
	g, err := resolveFlags.build(r)
	if err != nil {
		return err
	}

	switch resolveOutput {
	case "tree":
		return renderTree(cmd.OutOrStdout(), g, r.Formatter())
	case "json":
		result := g.Result()
		resp := api.ResolveViewResponse{
			Records: make([]api.ResolvedRecord, len(result.Records)),
			Groups:  g.Groups(),
			Sorts:   result.Sorts,
		}
		for i, rec := range result.Records {
			resp.Records[i] = api.ResolvedRecord{Key: g.KeyOf(rec, i), Record: rec}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		return fmt.Errorf("unknown output format %q (expected tree or json)", resolveOutput)
	}
}
