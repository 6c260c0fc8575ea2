package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/config"
	"github.com/skydreamer0/VOICEAPP/internal/daemon"
	"github.com/skydreamer0/VOICEAPP/internal/recorder"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := formatter(cmd)
			cfg := deps.Config
			ok := true

			rec, err := deps.Services.NewRecorder()
			switch {
			case err != nil:
				f.SetupCheck("Recorder", false, err.Error())
				ok = false
			case rec.Permission(ctx) != nil:
				if cfg.Recorder.Backend == recorder.BackendStream {
					f.SetupCheck("Recorder", false, "stream backend has no source")
				} else {
					f.SetupCheck("Recorder", false, "ffmpeg not found. Install it or set recorder.ffmpeg_path")
				}
				ok = false
			default:
				backend := cfg.Recorder.Backend
				if backend == "" {
					backend = recorder.BackendFFmpeg
				}
				f.SetupCheck("Recorder", true, backend)
			}

			if entries, err := deps.Services.DB.Entries(ctx); err != nil {
				f.SetupCheck("Database", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Database", true, fmt.Sprintf("%s (%d keys)", cfg.DBPath, len(entries)))
			}

			f.SetupCheck("Recordings directory", true, deps.Services.Files.RecordingsDir())
			f.SetupCheck("Downloads directory", true, deps.Services.Files.DownloadsDir())
			f.SetupCheck("Config file", true, config.Path())

			if pos, err := deps.Services.Location(ctx).Current(ctx); err != nil {
				f.SetupCheck("Location", false, err.Error())
			} else {
				f.SetupCheck("Location", true, fmt.Sprintf("%.5f, %.5f", pos.Latitude, pos.Longitude))
			}

			if c, err := daemon.Connect(cfg.SocketPath); err != nil {
				f.SetupCheck("Daemon", false, "not running. Start it with: voiceapp daemon")
			} else {
				c.Close()
				f.SetupCheck("Daemon", true, cfg.SocketPath)
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
