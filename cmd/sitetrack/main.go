// sitetrack is a command-line front end for the construction project
// tracker. It plays the part of the mobile UI: it drives the screen
// orchestrators and renders the signals they emit.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sitetrack/internal/config"
	"sitetrack/internal/session"
	"sitetrack/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sitetrack",
		Short: "Track construction projects, tasks and work categories",
		Long: `sitetrack talks to the remote project store configured via
SITETRACK_STORE_URL and SITETRACK_STORE_KEY. Commands that touch data
sign in first with SITETRACK_EMAIL / SITETRACK_PASSWORD (or the
--email / --password flags).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("email", "", "account email (default $SITETRACK_EMAIL)")
	rootCmd.PersistentFlags().String("password", "", "account password (default $SITETRACK_PASSWORD)")

	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired core for one CLI invocation.
type app struct {
	cfg    config.Config
	guard  *session.Guard
	client *store.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	guard := session.New(cfg)
	return &app{cfg: cfg, guard: guard, client: store.New(cfg, guard)}, nil
}

func credentialsFrom(cmd *cobra.Command) (email, password string, err error) {
	email, _ = cmd.Flags().GetString("email")
	password, _ = cmd.Flags().GetString("password")
	if email == "" {
		email = strings.TrimSpace(os.Getenv("SITETRACK_EMAIL"))
	}
	if password == "" {
		password = os.Getenv("SITETRACK_PASSWORD")
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("credentials required: set SITETRACK_EMAIL and SITETRACK_PASSWORD or pass --email/--password")
	}
	return email, password, nil
}

// signedInApp wires the core and signs in, the precondition for every
// data command.
func signedInApp(cmd *cobra.Command) (*app, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	email, password, err := credentialsFrom(cmd)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
	defer cancel()
	if err := a.guard.SignIn(ctx, email, password); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return a, nil
}

func signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Register a new account and sign it in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			email, password, err := credentialsFrom(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			if err := a.guard.SignUp(ctx, email, password); err != nil {
				return fmt.Errorf("sign up: %w", err)
			}
			ident, err := a.guard.Identity()
			if err != nil {
				return err
			}
			fmt.Printf("registered %s (%s)\n", ident.Email, ident.UserID)
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			ident, err := a.guard.Identity()
			if err != nil {
				return err
			}
			fmt.Printf("signed in as %s (%s)\n", ident.Email, ident.UserID)
			return nil
		},
	}
}
