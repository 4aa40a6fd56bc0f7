package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/llm"
)

func newModelsCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models a provider serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			family, err := a.family()
			if err != nil {
				return err
			}
			adapter, err := a.adapter(family, "")
			if err != nil {
				return err
			}
			models, err := adapter.FetchAvailableModels(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

			if jsonOut {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}
			fmt.Fprintln(a.out, modelTable(models))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the model records as JSON")
	return cmd
}

func modelTable(models []llm.ModelInfo) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 48
	table.AddRow("ID", "NAME", "CONTEXT", "MAX OUTPUT", "CAPABILITIES")
	for _, m := range models {
		table.AddRow(m.ID, m.Name, tokens(m.ContextWindow), tokens(m.MaxOutputTokens), capList(m.Capabilities))
	}
	return table
}

func tokens(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func capList(caps llm.CapabilitySet) string {
	if len(caps) == 0 {
		return "-"
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}
