package cmd

import (
	"github.com/spf13/cobra"
)

var restoreWhoami bool

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Start a session on --path the way an application start-up would",
	Long: `Restore runs the start-up sequence on the route given by --path: a cached
user other than default_username is signed out, the session is restored, and
on protected routes a missing session redirects to the login route. When a
default username is configured the redirect starts a password-less sign-in
whose challenge is prompted for.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.Start(ctx); err != nil {
			return err
		}
		if err := a.answerChallenges(ctx); err != nil {
			return err
		}
		if err := a.print(); err != nil {
			return err
		}
		if restoreWhoami && a.orch.Snapshot().Credentials != nil {
			return a.whoami(ctx)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolVar(&restoreWhoami, "whoami", false, "Resolve the AWS principal of the exchanged credentials")
}
