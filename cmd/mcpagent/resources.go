package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/orchestrator"
	"github.com/wagiedev/mcp-agent-go/internal/resolver"
)

const salesSystemPrompt = `You are a smart assistant that analyzes monthly sales data.

More Information in the MCP Resources:

%s`

// resourceSession is the part of a client the resources command uses.
type resourceSession interface {
	resolver.Source
	Ping(ctx context.Context) error
	ListResources(ctx context.Context) ([]*mcp.Resource, error)
}

type salesQuery struct {
	year     int
	month    string
	question string
}

func newResourcesCommand(a *app) *cobra.Command {
	var (
		t target
		q salesQuery
	)

	cmd := &cobra.Command{
		Use:   "resources --server <cmd> --year <year> --month <month> --query <question>",
		Short: "Ask the model about a month of sales data served as resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := a.connect(ctx, &t, args)
			if err != nil {
				return err
			}
			defer s.Close()

			r := resolver.New(s.client, resolver.WithLogger(a.log))

			return analyzeSales(ctx, s.client, r, s.model, q, cmd.OutOrStdout())
		},
	}

	t.addFlags(cmd)
	cmd.Flags().IntVar(&q.year, "year", 0, "Year of the sales data, e.g. 2025")
	cmd.Flags().StringVar(&q.month, "month", "", "Month of the sales data, written out, e.g. january")
	cmd.Flags().StringVar(&q.question, "query", "", "Question about the sales data")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// analyzeSales lists the server's resources, puts the README into the system
// prompt, reads the month's sales through the get_sales template, and asks the
// model the question.
func analyzeSales(
	ctx context.Context,
	c resourceSession,
	r *resolver.Resolver,
	model orchestrator.ChatModel,
	q salesQuery,
	out io.Writer,
) error {
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	resources, err := c.ListResources(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Available Resources:")

	var readme *mcp.Resource

	for _, res := range resources {
		fmt.Fprintf(out, "- %s: %s\n", res.Name, res.Description)

		if res.Name == "README" {
			readme = res
		}
	}

	templates, err := r.ListTemplates(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Available Resources Templates")

	for _, tmpl := range templates {
		fmt.Fprintf(out, "- %s: %s\n", tmpl.Name, tmpl.Description)
	}

	if readme == nil {
		return &errors.NotFoundError{Kind: "resource", Name: "README"}
	}

	readmeResult, err := r.Read(ctx, readme.URI)
	if err != nil {
		return fmt.Errorf("read README: %w", err)
	}

	sales, err := r.ReadTemplate(ctx, "get_sales", map[string]string{
		"year":  strconv.Itoa(q.year),
		"month": q.month,
	})
	if err != nil {
		return fmt.Errorf("fetch sales data: %w", err)
	}

	reply, err := model.Converse(ctx, &orchestrator.Request{
		System: fmt.Sprintf(salesSystemPrompt, resolver.Text(readmeResult)),
		Turns: []orchestrator.Turn{{
			Kind: orchestrator.TurnUser,
			Text: q.question + "\n\nSales Data:\n" + resolver.Text(sales),
		}},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n"+reply.Text)

	return nil
}
