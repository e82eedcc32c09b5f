package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"shopanalyst/internal/chat"
)

var (
	listHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved analysis sessions",
	Long:  `List all analysis sessions known to the backend, newest activity first as the server orders them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout())
		defer cancel()
		sessions, err := client.ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println(listHeaderStyle.Render("No sessions found"))
			return nil
		}

		fmt.Println(listHeaderStyle.Render(fmt.Sprintf("Found %d session(s)", len(sessions))))
		fmt.Println()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "STORE\tID\tLAST ACTIVE")
		for pos, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				chat.Label(s, pos),
				idStyle.Render(s.ID),
				dateStyle.Render(s.LastActive),
			)
		}
		return w.Flush()
	},
}
