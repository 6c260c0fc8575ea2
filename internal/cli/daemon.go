package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/daemon"
	"github.com/skydreamer0/VOICEAPP/internal/observability"
)

func NewDaemonCmd(deps *Dependencies) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:         "daemon",
		Short:       "Run the recorder daemon",
		Long:        "Run the recorder daemon in the foreground. It owns the microphone and serves 'record', the TUI and other clients over a Unix socket.",
		Annotations: map[string]string{annotationLog: "stderr"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec, err := deps.Services.NewRecorder()
			if err != nil {
				return err
			}
			srv := daemon.NewServer(deps.Services.NewSession(rec), deps.Services.Customers)
			if err := srv.Listen(deps.Config.SocketPath); err != nil {
				return err
			}

			metrics, err := startMetrics(metricsAddr, deps.Config.Metrics.Addr)
			if err != nil {
				return err
			}
			if metrics != nil {
				defer shutdownMetrics(metrics)
				metrics.SetReady(true)
			}

			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics, /healthz and /readyz on this address")
	return cmd
}

// startMetrics starts the metrics server on the flag address, falling back
// to the configured one. It returns nil when neither is set.
func startMetrics(flagAddr, cfgAddr string) (*observability.Server, error) {
	addr := flagAddr
	if addr == "" {
		addr = cfgAddr
	}
	if addr == "" {
		return nil, nil
	}
	srv := observability.NewServer(addr)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv, nil
}

func shutdownMetrics(srv *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
}
