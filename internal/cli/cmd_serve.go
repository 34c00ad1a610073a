package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/talgya/lineage/internal/api"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a saved simulation over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(a)
			if err != nil {
				return err
			}
			defer db.Close()

			srv := &api.Server{
				DB:         db,
				Addr:       fmt.Sprintf(":%d", a.cfg.API.Port),
				RateLimit:  a.cfg.API.RateLimit,
				TrustProxy: a.cfg.API.TrustProxy,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://localhost%s/api/v1/status\n", a.cfg.Storage.Path, srv.Addr)
			if err := srv.ListenAndServe(cmd.Context()); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("db", "lineage.db", "snapshot database to serve")
	f.Int("port", 8080, "HTTP port")
	f.Int("rate-limit", 120, "requests per client per minute (0 disables)")
	f.Bool("trust-proxy", false, "rate limit by X-Forwarded-For (only behind a proxy that sets it)")
	return cmd
}
