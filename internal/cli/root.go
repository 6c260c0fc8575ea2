package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/config"
	"github.com/skydreamer0/VOICEAPP/internal/logging"
	"github.com/skydreamer0/VOICEAPP/internal/output"
	"github.com/skydreamer0/VOICEAPP/internal/services"
	"github.com/skydreamer0/VOICEAPP/internal/version"
)

// Command annotations read by the root pre-run hook.
const (
	annotationLog    = "log"    // "stderr" logs to stderr instead of the log file
	annotationNoData = "nodata" // command needs no database
)

type Dependencies struct {
	Config   *config.Config
	Services *services.Services

	logFile io.Closer
	opened  bool
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voiceapp",
		Short: "Record voice memos for nearby customers",
		Long: "A voice-memo recorder and customer book: find customers near you, record a conversation " +
			"for them through the recorder daemon, and manage, filter and export the recordings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.Close()
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewCustomerCmd(deps))
	rootCmd.AddCommand(NewRecordingCmd(deps))
	rootCmd.AddCommand(NewSettingsCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDaemonCmd(deps))
	rootCmd.AddCommand(NewTUICmd(deps))
	rootCmd.AddCommand(NewMCPCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// setup configures logging for cmd and opens the stores unless they were
// injected already.
func (d *Dependencies) setup(cmd *cobra.Command) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = d.Config.Log.Level
	logCfg.Format = d.Config.Log.Format
	if cmd.Annotations[annotationLog] != "stderr" && d.Config.LogFile != "" {
		f, err := logging.OpenFile(d.Config.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		d.logFile = f
		logCfg.Output = f
		logCfg.Format = "json"
	}
	logging.Init(logCfg)

	if d.Services != nil || cmd.Annotations[annotationNoData] != "" {
		return nil
	}
	svc, err := services.Open(d.Config)
	if err != nil {
		return fmt.Errorf("opening data store: %w", err)
	}
	d.Services = svc
	d.opened = true
	return nil
}

// Close releases what setup opened.
func (d *Dependencies) Close() error {
	var err error
	if d.opened {
		err = d.Services.Close()
		d.Services = nil
		d.opened = false
	}
	if d.logFile != nil {
		d.logFile.Close()
		d.logFile = nil
	}
	return err
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationNoData: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}

func formatter(cmd *cobra.Command) *output.Formatter {
	return output.NewFormatter(cmd.OutOrStdout())
}

// errFormatter writes warnings to stderr so stdout stays parseable.
func errFormatter() *output.Formatter {
	return output.NewFormatter(os.Stderr)
}
