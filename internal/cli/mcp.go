package cli

import (
	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/mcpserver"
)

func NewMCPCmd(deps *Dependencies) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve customers and recordings to MCP clients over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := startMetrics(metricsAddr, deps.Config.Metrics.Addr)
			if err != nil {
				return err
			}
			if metrics != nil {
				defer shutdownMetrics(metrics)
				metrics.SetReady(true)
			}

			return mcpserver.ServeStdio(mcpserver.Deps{
				Customers:  deps.Services.Customers,
				Recordings: deps.Services.Recordings,
				Settings:   deps.Services.Settings,
				Location:   deps.Services.Location(cmd.Context()),
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics, /healthz and /readyz on this address")
	return cmd
}
