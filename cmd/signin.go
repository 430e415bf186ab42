package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
	"github.com/anirudhbiyani/identity-session/pkg/providers/cognito"
)

var (
	signinPassword     string
	signinPasswordless bool
	signinWhoami       bool
	signinKeep         bool
	signinGlobal       bool
)

var signinCmd = &cobra.Command{
	Use:   "signin [username]",
	Short: "Sign in, answer challenges and print the resulting session",
	Long: `Sign in with a username and password, or start a password-less custom
challenge with --passwordless. Challenges issued by the backend are prompted
for interactively. When an identity pool is configured the session is
exchanged for temporary AWS credentials.

The session is signed out again before the command exits unless --keep is set.`,
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
		if err := a.signIn(ctx, username, signinPassword, signinPasswordless); err != nil {
			return err
		}
		if err := a.print(); err != nil {
			return err
		}

		if signinWhoami {
			if err := a.whoami(ctx); err != nil {
				return err
			}
		}
		if signinKeep {
			return nil
		}
		return a.orch.SignOut(context.WithoutCancel(ctx), signinGlobal)
	},
}

// whoami prints the AWS principal behind the exchanged credentials.
func (a *app) whoami(ctx context.Context) error {
	c, ok := a.client.(*cognito.Client)
	if !ok {
		return identity.ErrNotConfigured.WithOperation("whoami").WithDetail("backend", a.cfg.Backend)
	}
	id, err := c.CallerIdentity(ctx, a.orch.Snapshot().Credentials)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account:        %s\n", id.Account)
	fmt.Fprintf(a.out, "ARN:            %s\n", id.ARN)
	return nil
}

func init() {
	rootCmd.AddCommand(signinCmd)
	signinCmd.Flags().StringVar(&signinPassword, "password", "", "Password (prompted when omitted)")
	signinCmd.Flags().BoolVar(&signinPasswordless, "passwordless", false, "Start a custom challenge instead of a password sign-in")
	signinCmd.Flags().BoolVar(&signinWhoami, "whoami", false, "Resolve the AWS principal of the exchanged credentials")
	signinCmd.Flags().BoolVar(&signinKeep, "keep", false, "Do not sign out before exiting")
	signinCmd.Flags().BoolVar(&signinGlobal, "global", false, "Sign out of every device when exiting")
}
