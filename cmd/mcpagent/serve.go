package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/capability/blog"
	"github.com/wagiedev/mcp-agent-go/internal/capability/sales"
	"github.com/wagiedev/mcp-agent-go/internal/capability/spacenews"
	"github.com/wagiedev/mcp-agent-go/internal/capability/weather"
	"github.com/wagiedev/mcp-agent-go/internal/server"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"
)

var capabilityServers = []string{"weather", "sales", "blog", "spacenews"}

func newServeCommand(a *app) *cobra.Command {
	var (
		transportName string
		addr          string
	)

	cmd := &cobra.Command{
		Use:       "serve weather|sales|blog|spacenews",
		Short:     "Run a capability server",
		Long:      "Run one of the example capability servers over stdio (default) or HTTP with server-sent events.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: capabilityServers,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			srv, err := a.buildServer(ctx, args[0])
			if err != nil {
				return err
			}

			switch transportName {
			case transportStdio:
				a.log.Info("Serving over stdio", "server", args[0])

				return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
			case transportHTTP:
				if addr == "" {
					addr = a.settings.HTTPAddr
				}

				a.log.Info("Serving over HTTP", "server", args[0], "addr", addr)

				return srv.ListenAndServe(ctx, addr)
			default:
				return fmt.Errorf("unknown transport %q (want %s or %s)", transportName, transportStdio, transportHTTP)
			}
		},
	}

	cmd.Flags().StringVar(&transportName, "transport", transportStdio, "Transport binding: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address for the http transport, overrides MCPAGENT_HTTP_ADDR")

	return cmd
}

// buildServer creates the named capability server. The sales server starts
// watching its data directory for the lifetime of ctx.
func (a *app) buildServer(ctx context.Context, name string) (*server.Server, error) {
	switch name {
	case "weather":
		return weather.NewServer(a.log, weather.NewNWS(a.log, nil, ""))
	case "sales":
		store := sales.NewStore(a.log, a.settings.SalesDir, a.settings.ReadmePath)

		srv, err := sales.NewServer(a.log, store)
		if err != nil {
			return nil, err
		}

		if err := store.Watch(ctx, srv); err != nil {
			a.log.Warn("Sales data changes will not be announced", "error", err)
		}

		return srv, nil
	case "blog":
		return blog.NewServer(a.log)
	case "spacenews":
		return spacenews.NewServer(a.log, spacenews.NewFeed(a.log, nil, ""))
	default:
		return nil, fmt.Errorf("unknown server %q", name)
	}
}
