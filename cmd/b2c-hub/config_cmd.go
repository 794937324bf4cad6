package main

import (
	"encoding/json"
	"fmt"
	"os"

	"b2c-hub/internal/infrastructure/b2cconfig"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect B2C configuration files",
	}

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a B2C configuration file",
		Long:  `Parses the file with the same rules init applies and prints the resolved configuration.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := b2cconfig.Parse(data)
			if err != nil {
				return err
			}

			jsonOutput, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"client_id":      cfg.ClientID,
					"redirect_uri":   cfg.RedirectURI,
					"account_mode":   cfg.AccountMode,
					"authorities":    cfg.AuthorityURLs(),
					"default_scopes": cfg.DefaultScopes,
				})
			}

			fmt.Fprintf(w, "configuration %s is valid\n", args[0])
			fmt.Fprintf(w, "  client id:    %s\n", cfg.ClientID)
			fmt.Fprintf(w, "  account mode: %s\n", cfg.AccountMode)
			for i, authority := range cfg.Authorities {
				marker := ""
				if i == 0 {
					marker = " (default)"
				}
				fmt.Fprintf(w, "  authority:    %s%s\n", authority.URL, marker)
			}
			return nil
		},
	}
	validate.Flags().Bool("json", false, "output as JSON")

	configCmd.AddCommand(validate)
	return configCmd
}
