package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	signoutPassword string
	signoutGlobal   bool
)

var signoutCmd = &cobra.Command{
	Use:   "signout [username]",
	Short: "Sign in and immediately end the session",
	Long: `Signout authenticates the user and ends the session again, revoking its
refresh token. With --global every session issued to the user on any device is
invalidated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var username string
		if len(args) == 1 {
			username = args[0]
		}
		if err := a.signIn(ctx, username, signoutPassword, false); err != nil {
			return err
		}

		if err := a.orch.SignOut(ctx, signoutGlobal); err != nil {
			return err
		}
		if signoutGlobal {
			fmt.Fprintln(a.out, "Signed out of all devices.")
		} else {
			fmt.Fprintln(a.out, "Signed out.")
		}
		return a.print()
	},
}

func init() {
	rootCmd.AddCommand(signoutCmd)
	signoutCmd.Flags().StringVar(&signoutPassword, "password", "", "Password (prompted when omitted)")
	signoutCmd.Flags().BoolVar(&signoutGlobal, "global", false, "Invalidate every session of the user")
}
