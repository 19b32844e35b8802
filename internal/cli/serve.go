package cli

import (
	"github.com/spf13/cobra"

	"option-journal/internal/api"
	apperrors "option-journal/internal/errors"
)

// addServeCommand adds the HTTP API server command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the journal HTTP API server",
		Long: `Start the REST API server used by the web UI.

The server exposes trade CRUD, symbol validation, strike listings,
and option matching endpoints.`,
		Example: `  option-journal serve
  option-journal serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			server := api.NewServer(app.Store, app.Market, app.Logger)
			return server.ListenAndServe(addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	rootCmd.AddCommand(cmd)
}
