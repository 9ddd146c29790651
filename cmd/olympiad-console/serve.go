package main

import (
	"github.com/spf13/cobra"

	"github.com/ohsansi/olympiad-console/internal/bootstrap"
)

func serveCmd(e env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web console",
		Long: `Serve the role-guarded web console. The persisted session is
restored at startup and verified against the backend in the background;
guarded pages wait until verification settles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, e)
			if err != nil {
				return err
			}
			defer closeApp(app)

			if addr != "" {
				app.Config.HTTP.Addr = addr
			}
			logStartupInfo(ctx, app.Logger, app.Config)
			return bootstrap.Serve(ctx, bootstrap.ServeConfig{App: app})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}
