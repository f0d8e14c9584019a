package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/llm"
)

func newModelsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known Claude models and the configured one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "ID\tNAME\tALIASES\tMAX OUTPUT")

			for _, m := range llm.Models() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.APIModel(a.settings.UseBedrock), m.Name,
					strings.Join(m.Aliases, ","), m.MaxOutputTokens)
			}

			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nConfigured: %s\n", llm.ResolveModel(a.settings.Model, a.settings.UseBedrock))

			return nil
		},
	}
}
