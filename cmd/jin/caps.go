package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

func newCapsCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "caps <model>",
		Short: "Show the resolved capabilities of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := a.family()
			if err != nil {
				return err
			}
			id := args[0]
			m := resolve.Resolve(family, capability.Lookup(family, id).ModelInfo(id))
			if jsonOut {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			fmt.Fprintln(a.out, capsTable(m))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the resolved model as JSON")
	return cmd
}

func capsTable(m llm.ResolvedModel) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("MODEL:", m.ID)
	table.AddRow("FAMILY:", string(m.Family))
	table.AddRow("SHAPE:", string(m.RequestShape))
	table.AddRow("CONTEXT:", tokens(m.ContextWindow))
	table.AddRow("MAX OUTPUT:", tokens(m.MaxOutputTokens))
	table.AddRow("CAPABILITIES:", capList(m.Capabilities))
	table.AddRow("REASONING:", reasoningLine(m))
	table.AddRow("CAN DISABLE:", strconv.FormatBool(m.ReasoningCanDisable))
	table.AddRow("WEB SEARCH:", strconv.FormatBool(m.WebSearchSupported))
	return table
}

func reasoningLine(m llm.ResolvedModel) string {
	r := m.Reasoning
	if !m.SupportsReasoning() {
		return "-"
	}
	switch r.Type {
	case llm.ReasoningTypeEffort:
		efforts := make([]string, len(r.Efforts))
		for i, e := range r.Efforts {
			efforts[i] = string(e)
		}
		return fmt.Sprintf("effort [%s] default %s", strings.Join(efforts, ","), r.DefaultEffort)
	case llm.ReasoningTypeBudget:
		return fmt.Sprintf("budget default %d", r.DefaultBudget)
	default:
		return string(r.Type)
	}
}
