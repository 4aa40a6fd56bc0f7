package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-key [key]",
		Short: "Check an API key against the provider",
		Long:  "validate-key checks the given key, or the configured one when no key is passed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := a.family()
			if err != nil {
				return err
			}
			key := a.settings.Provider(family).APIKey
			if len(args) == 1 {
				key = args[0]
			}
			if key == "" {
				return fmt.Errorf("no api key for %s: pass one or set providers.%s.api_key", family, family)
			}
			adapter, err := a.adapter(family, key)
			if err != nil {
				return err
			}
			ok, err := adapter.ValidateAPIKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s rejected the api key", family)
			}
			fmt.Fprintf(a.out, "%s: api key is valid\n", family)
			return nil
		},
	}
}
