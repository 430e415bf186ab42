// Package main is the entry point for the identity-session CLI.
//
// The CLI signs users in against an authentication backend, answers
// challenges, exchanges sessions for identity pool credentials and keeps
// them fresh with the refresh timer.
package main

import (
	"github.com/anirudhbiyani/identity-session/cmd"

	// Import providers to register them
	_ "github.com/anirudhbiyani/identity-session/pkg/providers/cognito"
	_ "github.com/anirudhbiyani/identity-session/pkg/providers/memory"
)

func main() {
	cmd.Execute()
}
