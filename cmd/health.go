package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the analyst backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			fmt.Println(errorStyle.Render("✗ backend unreachable:"), err)
			return fmt.Errorf("health check failed")
		}
		fmt.Println(successStyle.Render("✓ backend healthy"), cfg.API.BaseURL)
		return nil
	},
}
