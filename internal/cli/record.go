package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/daemon"
	"github.com/skydreamer0/VOICEAPP/internal/output"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Control the recorder daemon",
		Long:  "Start, pause, resume and stop recordings through a running 'voiceapp daemon'.",
	}

	cmd.AddCommand(newRecordStartCmd(deps))
	cmd.AddCommand(newRecordSimpleCmd(deps, daemon.CmdPause, "Pause the current recording"))
	cmd.AddCommand(newRecordSimpleCmd(deps, daemon.CmdResume, "Resume a paused recording"))
	cmd.AddCommand(newRecordStopCmd(deps))
	cmd.AddCommand(newRecordStatusCmd(deps))

	return cmd
}

func connectDaemon(deps *Dependencies) (*daemon.Client, error) {
	c, err := daemon.Connect(deps.Config.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w (is 'voiceapp daemon' running?)", err)
	}
	return c, nil
}

func newRecordStartCmd(deps *Dependencies) *cobra.Command {
	var nearest bool

	cmd := &cobra.Command{
		Use:   "start [customer-id]",
		Short: "Start recording for a customer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var id string
			switch {
			case len(args) == 1:
				id = args[0]
			case nearest:
				pos, err := deps.Services.Location(ctx).Current(ctx)
				if err != nil {
					return err
				}
				list, err := deps.Services.Customers.Nearby(ctx, pos, customer.DefaultRadiusKm)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					return fmt.Errorf("no customer within %.0fkm", customer.DefaultRadiusKm)
				}
				id = list[0].ID
			default:
				return fmt.Errorf("give a customer id or --nearest")
			}

			c, err := connectDaemon(deps)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Do(daemon.Command{Cmd: daemon.CmdStart, CustomerID: id})
			if err != nil {
				return err
			}
			formatter(cmd).Success(fmt.Sprintf("Recording started for %s", resp.CustomerName))
			return nil
		},
	}

	cmd.Flags().BoolVar(&nearest, "nearest", false, "Record for the nearest customer")
	return cmd
}

func newRecordSimpleCmd(deps *Dependencies, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connectDaemon(deps)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Do(daemon.Command{Cmd: name})
			if err != nil {
				return err
			}
			printStatus(formatter(cmd), resp.State, resp.CustomerName, resp.DurationMs)
			return nil
		},
	}
}

func newRecordStopCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop and save the current recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connectDaemon(deps)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Do(daemon.Command{Cmd: daemon.CmdStop})
			if err != nil {
				return err
			}
			out := formatter(cmd)
			var d time.Duration
			if resp.DurationMs != nil {
				d = time.Duration(*resp.DurationMs) * time.Millisecond
			}
			out.Success(fmt.Sprintf("Recording saved: %s (%s)", resp.RecordingID, output.FormatDuration(d)))
			if resp.AudioURI != "" {
				out.Info(resp.AudioURI)
			}
			return nil
		},
	}
}

func newRecordStatusCmd(deps *Dependencies) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorder state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connectDaemon(deps)
			if err != nil {
				return err
			}
			defer c.Close()
			out := formatter(cmd)

			if !follow {
				resp, err := c.Do(daemon.Command{Cmd: daemon.CmdStatus})
				if err != nil {
					return err
				}
				printStatus(out, resp.State, resp.CustomerName, resp.DurationMs)
				return nil
			}

			if err := c.Subscribe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				c.Close()
			}()

			var state, name string
			for {
				ev, err := c.ReadEvent()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				switch ev.Event {
				case daemon.EventStatus:
					state, name = ev.State, ev.CustomerName
					printStatus(out, state, name, ev.DurationMs)
				case daemon.EventTick:
					printStatus(out, state, name, ev.DurationMs)
				case daemon.EventSaved:
					out.Success(fmt.Sprintf("Recording saved: %s", ev.RecordingID))
				case daemon.EventError:
					out.Error(ev.Message)
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing state changes and ticks")
	return cmd
}

func printStatus(out *output.Formatter, state, customerName string, durationMs *int64) {
	var d time.Duration
	if durationMs != nil {
		d = time.Duration(*durationMs) * time.Millisecond
	}
	out.SessionStatus(state, customerName, d)
}
