package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCode string

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password <username>",
	Short: "Send a password reset code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.ForgotPassword(ctx, args[0]); err != nil {
			return err
		}
		return a.print()
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "Set a new password with a reset code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		code := resetCode
		if code == "" {
			if code, err = a.prompt.line("Verification code: "); err != nil {
				return err
			}
		}
		password, err := a.prompt.secret("New password: ")
		if err != nil {
			return err
		}

		if err := a.orch.ResetPassword(ctx, args[0], code, password); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password updated.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	resetPasswordCmd.Flags().StringVar(&resetCode, "code", "", "Verification code (prompted when omitted)")
}
