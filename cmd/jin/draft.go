package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/params"
)

func newDraftCmd(a *app) *cobra.Command {
	var (
		apply    string
		controls controlFlags
	)
	cmd := &cobra.Command{
		Use:   "draft <model>",
		Short: "Render generation flags as the provider's raw parameter document",
		Long: `draft prints the parameter document the given flags produce for a model.

With --apply, the given document is read back instead: recognized fields are
absorbed into canonical controls and the rest is reported as the
provider-specific remainder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := a.family()
			if err != nil {
				return err
			}
			id := args[0]
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")

			if apply != "" {
				doc, err := readDraft(apply)
				if err != nil {
					return err
				}
				var c llm.GenerationControls
				rest := params.ApplyDraft(family, id, doc, &c)
				c.ProviderSpecific = nil
				return enc.Encode(struct {
					Controls  llm.GenerationControls `json:"controls"`
					Remainder map[string]any         `json:"remainder"`
				}{c, rest})
			}

			c, err := controls.build(cmd, family, id)
			if err != nil {
				return err
			}
			return enc.Encode(params.MakeDraft(family, id, c))
		},
	}
	cmd.Flags().StringVar(&apply, "apply", "", "parse a draft (JSON, @file or - for stdin) back into controls")
	controls.bind(cmd)
	return cmd
}
