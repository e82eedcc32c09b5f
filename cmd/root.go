package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shopanalyst/internal/api"
	"shopanalyst/internal/config"
	"shopanalyst/internal/tui"
	"shopanalyst/internal/utils"
)

var (
	verbose    bool
	apiURL     string
	dataDir    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "shopanalyst",
	Short: "Chat with the Shopify analyst backend from your terminal",
	Long: `A terminal client for the Shopify Analyst backend.

Running with no arguments opens the interactive chat: attach to a store by
URL, ask questions about orders, products and revenue, and switch between
saved analysis sessions from the sidebar. The active session survives
restarts.

Quick start:
  shopanalyst                  # open the chat UI
  shopanalyst sessions         # list saved sessions
  shopanalyst delete <id>      # delete a session
  shopanalyst health           # check the backend is reachable`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		logger, err := utils.NewFileLogger(cfg.Logging.Level, cfg.LogPath())
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger.Infof("starting against %s", cfg.API.BaseURL)
		return tui.Run(cfg, logger)
	},
}

// Execute runs the root command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Analyst backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Local state directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(healthCmd)
}

// loadConfig layers flag overrides on top of file/env config.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newClient(cfg config.Config) *api.Client {
	return api.NewClient(cfg.API.BaseURL, cfg.APITimeout(), utils.NewLogger(cfg.Logging.Level))
}
