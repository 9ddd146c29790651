package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
	apperrors "github.com/ohsansi/olympiad-console/internal/errors"
	"github.com/ohsansi/olympiad-console/internal/service"
)

var errNotLoggedIn = errors.New("not logged in")

func loginCmd(e env) *cobra.Command {
	var (
		correo        string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				pw, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = pw
			}

			ctx := cmd.Context()
			app, err := openApp(ctx, e)
			if err != nil {
				return err
			}
			defer closeApp(app)

			res, err := app.Session.Login(ctx, service.LoginInput{Correo: correo, Password: password})
			if err != nil {
				return describe(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render("✓")+" signed in as "+kindStyle.Render(string(res.Kind)))
			printProfile(out, &res.Profile, res.Kind)
			return nil
		},
	}

	cmd.Flags().StringVarP(&correo, "correo", "u", "", "Account e-mail")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}

func whoamiCmd(e env) *cobra.Command {
	var (
		asJSON  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Verify the persisted session and print the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			app, err := openApp(ctx, e)
			if err != nil {
				return err
			}
			defer closeApp(app)

			select {
			case <-app.Session.Start(ctx):
			case <-ctx.Done():
				return fmt.Errorf("verify session: %w", ctx.Err())
			}

			snap := app.Session.State()
			if !snap.Authenticated() {
				return errNotLoggedIn
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Kind domainauth.Kind     `json:"kind"`
					User *domainauth.Profile `json:"user"`
				}{snap.Kind, snap.User})
			}
			printProfile(out, snap.User, snap.Kind)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Give up verifying after this long")
	return cmd
}

func logoutCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, e)
			if err != nil {
				return err
			}
			defer closeApp(app)

			// Loading the store hands the bearer to the backend client for the remote logout.
			if _, err := app.Store.Load(ctx); err != nil {
				app.Logger.WarnContext(ctx, "read session before logout failed", "error", err)
			}
			app.Session.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+" signed out")
			return nil
		},
	}
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describe turns auth errors into the user-facing message.
func describe(err error) error {
	appErr := apperrors.FromAuth(err)
	switch {
	case appErr == nil:
		return nil
	case apperrors.IsValidation(appErr) && apperrors.GetField(appErr) != "":
		return fmt.Errorf("%s (see --%s): %w", appErr.Message, apperrors.GetField(appErr), err)
	case apperrors.IsUnauthenticated(appErr):
		return fmt.Errorf("sign-in rejected: %s: %w", appErr.Message, err)
	default:
		return fmt.Errorf("%s: %w", appErr.Message, err)
	}
}
