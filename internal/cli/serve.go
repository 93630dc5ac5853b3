package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IgorPritula/entity-ref-dependency/internal/api"
)

var (
	serveAddr     string
	serveNoWorker bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API (and run the worker)",
	Long: `Starts the HTTP API used by the host: save and delete hooks, dependency
resolution, reindex, queue ticks and statistics. The deferred delete worker
runs in the same process unless --no-worker is given.

The config file is watched. Changes to the [cascade] section apply to the
next request; [server], [worker], [index] and [database] settings are read
once at start and need a restart.

Examples:
  erdep serve
  erdep serve --addr :8089 --no-worker`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := getConfig()
		addr := serveAddr
		if addr == "" {
			addr = c.Server.Addr
		}

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer a.Close()

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(a, api.Options{CORSOrigins: c.Server.CORSOrigins, Logger: logger}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			logger.Info("listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if !serveNoWorker {
			eg.Go(func() error { return a.Runner.RunPool(ctx, c.Worker.Concurrency) })
		}
		eg.Go(func() error { return watchConfig(ctx, a) })

		if err := eg.Wait(); err != nil {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: [server] addr)")
	serveCmd.Flags().BoolVar(&serveNoWorker, "no-worker", false, "Do not process the delete queue in this process")
	rootCmd.AddCommand(serveCmd)
}
