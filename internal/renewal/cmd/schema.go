package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"renewal/internal/config"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "schema",
		Short:  "Generate JSON schema for configuration",
		Long:   "Generate JSON schema for renewal.yaml. With --defaults, print the built-in configuration instead; it is valid as renewal.json.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any = new(jsonschema.Reflector).Reflect(&config.Config{})
			if defaults, _ := cmd.Flags().GetBool("defaults"); defaults {
				v = config.Default()
			}
			bts, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
	cmd.Flags().Bool("defaults", false, "Print the default configuration")
	return cmd
}
