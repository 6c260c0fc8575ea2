package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/skydreamer0/VOICEAPP/internal/app"
)

func NewTUICmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive recorder",
		Long:  "Open a terminal UI listing nearby customers and their recordings, driving the recorder daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := app.NewModel(app.Options{
				SocketPath: deps.Config.SocketPath,
				Customers:  deps.Services.Customers,
				Recordings: deps.Services.Recordings,
				Location:   deps.Services.Location(cmd.Context()),
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
}
