package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shopanalyst/internal/chat"
	"shopanalyst/internal/store"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete an analysis session",
	Long: `Delete a session server-side. Deletion is permanent; the session's
history cannot be recovered. If the deleted session is the one the chat UI
would resume into, the local resume state is cleared as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !deleteYes {
			fmt.Printf("Delete session %s? This cannot be undone. [y/N] ", sessionID)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		client := newClient(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout())
		defer cancel()
		if err := client.DeleteSession(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		if err := cfg.EnsureDataDir(); err == nil {
			if st, err := store.OpenSQLite(cfg.StorePath()); err == nil {
				defer st.Close()
				if cleared, err := chat.ForgetIfActive(st, sessionID); err == nil && cleared {
					fmt.Println("Cleared local resume state.")
				}
			}
		}

		fmt.Printf("Deleted session %s\n", sessionID)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
}
