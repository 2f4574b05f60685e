package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shawkym/chatpane/pkg/tui"
	"github.com/shawkym/chatpane/pkg/widget"
)

var chatLogFile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Long: `Open a terminal chat against the backend. Enter sends, Ctrl+N opens the
notifications sidebar, Tab and Ctrl+O select and toggle video cards, and
Ctrl+C quits.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addBackendFlags(chatCmd)
	chatCmd.Flags().StringVar(&chatLogFile, "log-file", "", "Write logs to this file (logs are discarded otherwise)")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The alt screen owns the terminal, so logs never go to stderr here.
	var logOut io.Writer = io.Discard
	if chatLogFile != "" {
		f, err := os.OpenFile(chatLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	setupLogging(cfg, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := widget.NewController(newBridgeClient(cfg), widget.Options{
		SessionID: uuid.NewString(),
		Sanitizer: newSanitizer(cfg),
	})
	return tui.Run(ctx, ctrl, tui.Options{
		Title:   cfg.Server.Title,
		Welcome: cfg.Server.Welcome,
	})
}
