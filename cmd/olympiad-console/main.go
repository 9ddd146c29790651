// Command olympiad-console runs the olympiad operator console and manages
// the operator session from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ohsansi/olympiad-console/config"
	"github.com/ohsansi/olympiad-console/internal/bootstrap"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

// env carries the process boundary so commands can run against fakes in tests.
type env struct {
	loadConfig func() (config.AppConfig, error)
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	// logs receives structured logs; stderr when nil.
	logs io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := env{
		loadConfig: bootstrap.LoadConfig,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	if err := newRootCmd(e).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" "+err.Error())
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func newRootCmd(e env) *cobra.Command {
	root := &cobra.Command{
		Use:   "olympiad-console",
		Short: "Operator console for the olympiad management backend",
		Long: `olympiad-console signs an operator into the olympiad backend,
works out whether the account is an administrator, a responsable or an
evaluador, and serves a role-guarded web console for that session.

The session is persisted (file or Redis backend) so that it survives
restarts and is shared between the CLI and the web console.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(e.stdin)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	root.AddCommand(
		serveCmd(e),
		loginCmd(e),
		whoamiCmd(e),
		logoutCmd(e),
	)
	return root
}

// openApp loads configuration and wires the auth core. Callers must Close the app.
func openApp(ctx context.Context, e env) (*bootstrap.App, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	logs := e.logs
	if logs == nil {
		logs = e.stderr
	}
	logger := bootstrap.InitLogger(logs, cfg.IsDev)
	return bootstrap.NewApp(ctx, bootstrap.AppDeps{Config: &cfg, Logger: logger})
}

func closeApp(app *bootstrap.App) {
	if err := app.Close(); err != nil {
		app.Logger.Error("close app failed", "error", err)
	}
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg config.AppConfig) {
	logger.InfoContext(ctx, "olympiad console starting",
		"version", version,
		"api", cfg.API.BaseURL,
		"session_backend", cfg.Session.Backend,
		"addr", cfg.HTTP.Addr,
		"dev", cfg.IsDev,
	)
}
