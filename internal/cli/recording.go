package cli

import (
	"fmt"
	"mime"
	"time"

	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/files"
	"github.com/skydreamer0/VOICEAPP/internal/output"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
	"github.com/skydreamer0/VOICEAPP/internal/report"
)

func NewRecordingCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recording",
		Aliases: []string{"recordings", "rec"},
		Short:   "Manage recordings",
	}

	cmd.AddCommand(newRecordingListCmd(deps))
	cmd.AddCommand(newRecordingShowCmd(deps))
	cmd.AddCommand(newRecordingDeleteCmd(deps))
	cmd.AddCommand(newRecordingPurgeCmd(deps))
	cmd.AddCommand(newRecordingUpdateCmd(deps))
	cmd.AddCommand(newRecordingCleanupCmd(deps))
	cmd.AddCommand(newRecordingDownloadCmd(deps))
	cmd.AddCommand(newRecordingFilesCmd(deps))
	cmd.AddCommand(newRecordingExportCmd(deps))

	return cmd
}

// filterFlags select recordings for list, purge and export.
type filterFlags struct {
	customers []string
	from, to  string
	min, max  time.Duration
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.customers, "customer", "c", nil, "Customer name (repeatable)")
	cmd.Flags().StringVar(&f.from, "from", "", "Created on or after (YYYY-MM-DD as a UTC day, or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "Created on or before, whole UTC day inclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().DurationVar(&f.min, "min", 0, "Minimum length, e.g. 30s")
	cmd.Flags().DurationVar(&f.max, "max", 0, "Maximum length, e.g. 10m")
}

func (f *filterFlags) criteria() (recording.Criteria, error) {
	c := recording.Criteria{CustomerNames: f.customers}

	if f.from != "" || f.to != "" {
		dr := &recording.DateRange{}
		var err error
		if f.from != "" {
			if dr.Start, err = recording.ParseBound(f.from, false); err != nil {
				return c, err
			}
		}
		if f.to != "" {
			if dr.End, err = recording.ParseBound(f.to, true); err != nil {
				return c, err
			}
		}
		c.DateRange = dr
	}

	if f.min < 0 || f.max < 0 {
		return c, fmt.Errorf("%w: durations must not be negative", recording.ErrInvalid)
	}
	if f.min > 0 || f.max > 0 {
		c.Duration = &recording.DurationRange{Min: f.min, Max: f.max}
	}
	return c, nil
}

func newRecordingListCmd(deps *Dependencies) *cobra.Command {
	var f filterFlags
	var customerID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := f.criteria()
			if err != nil {
				return err
			}

			var list []recording.Recording
			if customerID != "" {
				if list, err = deps.Services.Recordings.ForCustomer(ctx, customerID); err != nil {
					return err
				}
				list = recording.Filter(list, c)
			} else if list, err = deps.Services.Recordings.Find(ctx, c); err != nil {
				return err
			}

			out := formatter(cmd)
			if len(list) == 0 {
				out.Info("No recordings found")
				return nil
			}
			out.RecordingListHeader(len(list))
			for _, r := range list {
				out.RecordingItem(r)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&customerID, "customer-id", "", "Only recordings for this customer id")
	return cmd
}

func newRecordingShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := deps.Services.Recordings.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter(cmd).RecordingDetail(r)
			return nil
		},
	}
}

func newRecordingDeleteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete recordings and their audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := deps.Services.Recordings.DeleteMany(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := formatter(cmd)
			out.Success(fmt.Sprintf("Deleted %d recording(s)", n))
			if missing := len(args) - n; missing > 0 {
				out.Warning(fmt.Sprintf("%d id(s) not found", missing))
			}
			return nil
		},
	}
}

func newRecordingPurgeCmd(deps *Dependencies) *cobra.Command {
	var f filterFlags
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every recording matching the filters",
		Long:  "Delete every recording matching the filters. Without --yes only the matches are counted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := f.criteria()
			if err != nil {
				return err
			}
			list, err := deps.Services.Recordings.Find(ctx, c)
			if err != nil {
				return err
			}

			out := formatter(cmd)
			if len(list) == 0 {
				out.Info("No recordings match")
				return nil
			}
			if !yes {
				out.Warning(fmt.Sprintf("%d recording(s) match. Re-run with --yes to delete them.", len(list)))
				return nil
			}

			ids := make([]string, len(list))
			for i, r := range list {
				ids[i] = r.ID
			}
			n, err := deps.Services.Recordings.DeleteMany(ctx, ids)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Deleted %d recording(s)", n))
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Really delete")
	return cmd
}

func newRecordingUpdateCmd(deps *Dependencies) *cobra.Command {
	var clinic, phone, transcription, customerName string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a recording's clinic, phone, customer name or transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p recording.Patch
			flags := cmd.Flags()
			if flags.Changed("clinic") {
				p.ClinicName = &clinic
			}
			if flags.Changed("phone") {
				p.PhoneNumber = &phone
			}
			if flags.Changed("transcription") {
				p.Transcription = &transcription
			}
			if flags.Changed("customer-name") {
				p.CustomerName = &customerName
			}

			r, err := deps.Services.Recordings.Update(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			formatter(cmd).Success(fmt.Sprintf("Recording updated: %s", r.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&clinic, "clinic", "", "Clinic name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&transcription, "transcription", "", "Transcription text")
	cmd.Flags().StringVar(&customerName, "customer-name", "", "Customer name")
	return cmd
}

func newRecordingCleanupCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove recordings whose audio file no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := deps.Services.Recordings.CleanupStale(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				formatter(cmd).Info("No stale recordings")
				return nil
			}
			formatter(cmd).Success(fmt.Sprintf("Removed %d stale recording(s)", n))
			return nil
		},
	}
}

func newRecordingDownloadCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "download <id>",
		Short: "Copy a recording's audio into the downloads directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := deps.Services.Recordings.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			lib := deps.Services.Files
			var fi files.FileInfo
			if r.IsDataURI() {
				mt, data, err := r.DecodeAudio()
				if err != nil {
					return err
				}
				name := files.FileName(files.NameInfo{
					CustomerName: r.CustomerName,
					ClinicName:   r.ClinicName,
					PhoneNumber:  r.PhoneNumber,
					Location:     r.Location,
					CreatedAt:    r.CreatedAt.Time,
				}, files.Defaults{})
				if fi, err = lib.WriteDownload(name+extensionFor(mt), data); err != nil {
					return err
				}
			} else {
				path := r.FilePath()
				if path == "" || !lib.Exists(path) {
					return fmt.Errorf("audio for %s is not available", r.ID)
				}
				if fi, err = lib.Download(path); err != nil {
					return err
				}
			}
			formatter(cmd).Success(fmt.Sprintf("Downloaded: %s (%s)", fi.Path, output.FormatBytes(fi.Size)))
			return nil
		},
	}
}

func newRecordingFilesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List audio files in the recordings directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := deps.Services.Files.List()
			if err != nil {
				return err
			}
			out := formatter(cmd)
			if len(list) == 0 {
				out.Info("No audio files")
				return nil
			}
			out.Header(fmt.Sprintf("📁 %s (%d):", deps.Services.Files.RecordingsDir(), len(list)))
			for _, fi := range list {
				line := fmt.Sprintf("%s  %s", fi.Name, output.FormatBytes(fi.Size))
				if info, err := files.ParseFileName(fi.Name); err == nil {
					line += fmt.Sprintf("  [%s, %s]", info.CustomerName, info.ClinicName)
				}
				out.KeyValue(fi.ModTime.Format("2006-01-02 15:04"), line)
			}
			return nil
		},
	}
}

func newRecordingExportCmd(deps *Dependencies) *cobra.Command {
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export recordings to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.criteria()
			if err != nil {
				return err
			}
			list, err := deps.Services.Recordings.Find(cmd.Context(), c)
			if err != nil {
				return err
			}
			if err := report.WriteXLSX(args[0], list); err != nil {
				return err
			}
			formatter(cmd).Success(fmt.Sprintf("Exported %d recording(s) to %s", len(list), args[0]))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

// extensionFor maps an audio media type to a file extension.
func extensionFor(mediaType string) string {
	switch mediaType {
	case recording.MimeWebM:
		return ".webm"
	case recording.MimeM4A:
		return ".m4a"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
