package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/output"
	"github.com/skydreamer0/VOICEAPP/internal/settings"
)

func NewSettingsCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the application settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := deps.Services.Settings.App(cmd.Context())
			if err != nil {
				return err
			}
			printApp(formatter(cmd), app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "audio",
		Short: "Show the audio settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.Services.Settings.Audio(cmd.Context())
			if err != nil {
				return err
			}
			printAudio(formatter(cmd), a)
			return nil
		},
	})

	cmd.AddCommand(newSetAudioCmd(deps))

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one application setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := deps.Services.Settings.GetApp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one application setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := deps.Services.Settings.SetApp(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			v, _ := app.Lookup(args[0])
			formatter(cmd).Success(fmt.Sprintf("%s = %v", args[0], v))
			return nil
		},
	})

	var audio bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Store the default application settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if audio {
				if _, err := deps.Services.Settings.ResetAudio(ctx); err != nil {
					return err
				}
				formatter(cmd).Success("Audio settings reset")
				return nil
			}
			if _, err := deps.Services.Settings.ResetApp(ctx); err != nil {
				return err
			}
			formatter(cmd).Success("Settings reset")
			return nil
		},
	}
	reset.Flags().BoolVar(&audio, "audio", false, "Reset the audio settings instead")
	cmd.AddCommand(reset)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored application settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Services.Settings.ClearApp(cmd.Context()); err != nil {
				return err
			}
			formatter(cmd).Success("Settings cleared")
			return nil
		},
	})

	return cmd
}

func newSetAudioCmd(deps *Dependencies) *cobra.Command {
	var quality string
	var sampleRate, bitRate, channels int

	cmd := &cobra.Command{
		Use:   "set-audio",
		Short: "Change the audio settings",
		Long:  "Change the audio settings. --quality also sets the matching bit rate unless --bit-rate is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := deps.Services.Settings.Audio(ctx)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("quality") {
				a = a.WithQuality(settings.Quality(quality))
			}
			if flags.Changed("sample-rate") {
				a.SampleRate = sampleRate
			}
			if flags.Changed("bit-rate") {
				a.BitRate = bitRate
			}
			if flags.Changed("channels") {
				a.Channels = channels
			}

			if err := deps.Services.Settings.SaveAudio(ctx, a); err != nil {
				return err
			}
			out := formatter(cmd)
			out.Success("Audio settings saved")
			printAudio(out, a)
			return nil
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", "", "low, medium or high")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 0, fmt.Sprintf("One of %v", settings.SampleRates))
	cmd.Flags().IntVar(&bitRate, "bit-rate", 0, fmt.Sprintf("One of %v", settings.BitRates))
	cmd.Flags().IntVar(&channels, "channels", 0, "1 (mono) or 2 (stereo)")
	return cmd
}

func printApp(out *output.Formatter, app settings.App) {
	for _, key := range settings.Keys() {
		v, _ := app.Lookup(key)
		out.KeyValue(key, v)
	}
}

func printAudio(out *output.Formatter, a settings.Audio) {
	out.KeyValue("quality", a.Quality)
	out.KeyValue("sampleRate", a.SampleRate)
	out.KeyValue("bitRate", a.BitRate)
	out.KeyValue("channels", a.Channels)
}
