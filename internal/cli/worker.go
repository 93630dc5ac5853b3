package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var (
	workerOnce        bool
	workerConcurrency int
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process the deferred delete queue",
	Long: `Deletes the dependents queued by cascading deletes. By default the worker
runs until interrupted, draining the queue every [worker] interval for at
most [worker] time_budget per tick. With --once it drains the queue a single
time and exits.

The config file is watched. Changes to the [cascade] section apply to the
next job; [worker], [index] and [database] settings are read once at start
and need a restart.

Examples:
  erdep worker
  erdep worker --once --json
  erdep worker --concurrency 4`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer a.Close()

		if workerOnce {
			var spin *ui.Spinner
			if !isJSONOutput() {
				spin = ui.NewSpinner("Draining the delete queue")
				spin.Start()
			}
			res, err := a.Runner.Tick(ctx)
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			if isJSONOutput() {
				outputSuccess(res, &Meta{Count: res.Deleted})
				return nil
			}
			fmt.Println(ui.Successf("Processed %s, deleted %s", ui.Count(res.Jobs, "job"), ui.Count(res.Deleted, "dependent")))
			if res.Failed > 0 {
				fmt.Println(ui.Warningf("%d jobs failed and will be retried", res.Failed))
			}
			if res.Dropped > 0 {
				fmt.Println(ui.Warningf("%d jobs exceeded max_attempts and were dropped", res.Dropped))
			}
			return nil
		}

		n := workerConcurrency
		if n <= 0 {
			n = getConfig().Worker.Concurrency
		}
		logger.Info("worker started", "concurrency", n, "interval", getConfig().Worker.Interval.String())

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error { return a.Runner.RunPool(ctx, n) })
		eg.Go(func() error { return watchConfig(ctx, a) })
		if err := eg.Wait(); err != nil && ctx.Err() == nil {
			return handleError(ErrInternal, err, "")
		}
		logger.Info("worker stopped")
		return nil
	},
}

// watchConfig applies config file changes to a until ctx is done. Without a
// config file on disk it just waits.
func watchConfig(ctx context.Context, a *app.App) error {
	path := getConfig().Path()
	if _, err := os.Stat(path); err != nil {
		<-ctx.Done()
		return nil
	}
	log := logging.For(logger, logging.ChannelConfig)
	err := config.Watch(ctx, path, logger, func(c *config.Config, err error) {
		if err != nil {
			log.Warn("config reload failed; keeping previous settings", "error", err)
			return
		}
		a.ApplyConfig(c)
		log.Info("config reloaded",
			"allow_cascade_delete", c.Cascade.AllowCascadeDelete,
			"allowed_entity_types", c.Cascade.AllowedEntityTypes)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "Drain the queue once and exit")
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Parallel runners (default: [worker] concurrency)")
	rootCmd.AddCommand(workerCmd)
}
