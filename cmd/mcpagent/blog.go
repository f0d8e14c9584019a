package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/pipeline"
)

const defaultOutlook = "If you want to learn more about MCP, or have questions on individual blog posts, visit www.evo-byte.com"

func newBlogCommand(a *app) *cobra.Command {
	var (
		t        target
		codeFile string
		outlook  string
	)

	cmd := &cobra.Command{
		Use:   "blog --server <cmd> --code <file>",
		Short: "Write a blog post about a source file using the server's prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			code, err := os.ReadFile(codeFile)
			if err != nil {
				return fmt.Errorf("read code: %w", err)
			}

			s, err := a.connect(ctx, &t, args)
			if err != nil {
				return err
			}
			defer s.Close()

			prompts, err := s.client.ListPrompts(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Available Prompts:")
			fmt.Fprintf(out, "Total Prompts: %d\n", len(prompts))

			for _, p := range prompts {
				fmt.Fprintf(out, "- %s\n", p.Name)
			}

			result, err := pipeline.New(a.log, s.client, s.model).Run(ctx, string(code), outlook)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "\n"+result.Document)

			return nil
		},
	}

	t.addFlags(cmd)
	cmd.Flags().StringVar(&codeFile, "code", "", "Source file to write about")
	cmd.Flags().StringVar(&outlook, "outlook", defaultOutlook, "Closing outlook section")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}
