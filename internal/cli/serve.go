package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/cmsapi"
	"github.com/mesh-intelligence/pantry/internal/dashboard"
	"github.com/mesh-intelligence/pantry/internal/metrics"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured provider as a CMS REST API",
		Long: `Serve exposes every collection of the configured provider under
/api/<collection> in the Strapi v4 shape the remote provider speaks, so one
pantry process can back another configured with provider: remote.

Driver call counts and latencies are published on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = current.settings.ServeAddr
			}
			if token == "" {
				token = current.settings.ServeToken
			}
			logger := current.logger
			if logger == nil {
				logger = zap.NewNop()
			}

			promReg := prometheus.NewRegistry()
			promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			coll := metrics.NewCollectors(promReg)

			ws, err := openWorkspaceWith(cmd.Context(), setup{
				wrap: func(d types.Driver) types.Driver { return metrics.Instrument(d, coll) },
				seed: dashboard.RegisterSeeds,
			})
			if err != nil {
				return err
			}
			defer ws.close()

			if !flags.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{
				Addr: addr,
				Handler: cmsapi.NewRouter(ws.driver,
					cmsapi.WithToken(token),
					cmsapi.WithLogger(logger),
					cmsapi.WithGatherer(promReg)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("serving", zap.String("addr", addr), zap.String("driver", ws.driver.Name()))
				serveErr <- srv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "pantry serving %s on %s\n", ws.driver.Name(), addr)

			select {
			case err := <-serveErr:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return sysError("serve: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return sysError("shutdown: %w", err)
			}
			logger.Info("stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config.yaml, :1337)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token required on /api routes")
	return cmd
}
