package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/version"
)

func newVersionCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version never needs the config file
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			switch output {
			case "json":
				s, err := info.ToJSONIndent()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, s)
			case "short":
				fmt.Fprintln(a.out, info.ShortString())
			case "text", "":
				fmt.Fprintln(a.out, info.Text())
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, short)")
	return cmd
}
