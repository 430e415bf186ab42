package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

var (
	configPath string
	backend    string
	logLevel   string
	logJSON    bool
	startPath  string
	output     string
)

var rootCmd = &cobra.Command{
	Use:   "identity-session",
	Short: "Manage user pool sessions from the command line",
	Long: `identity-session signs users in against a Cognito user pool (or the
in-memory backend), answers authentication challenges, exchanges sessions for
identity pool credentials and keeps them fresh.

Configuration is read from ~/.identity-session/config.toml and IDENTITY_*
environment variables. Tokens are only ever held in process memory.`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", identity.DefaultConfigPath(), "Path to the TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Authentication backend (cognito, memory); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&startPath, "path", "/", "Route the session starts on")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
}
