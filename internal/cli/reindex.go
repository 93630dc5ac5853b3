package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/index"
	"github.com/IgorPritula/entity-ref-dependency/internal/indexer"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var (
	reindexResume   bool
	reindexPageSize int
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the reference index from the content store",
	Long: `Clears the reference index and indexes every bundle of every fieldable
entity type, page by page. Progress is checkpointed after every page; use
--resume to continue an interrupted rebuild without clearing the index.

Examples:
  erdep reindex
  erdep reindex --resume
  erdep reindex --page-size 200 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer a.Close()

		var bar *ui.ProgressBar
		opts := app.ReindexOptions{Resume: reindexResume, PageSize: reindexPageSize}
		if !isJSONOutput() {
			bar = ui.NewProgressBar()
			opts.OnProgress = func(p indexer.Progress) {
				label := fmt.Sprintf("%s/%s (%d/%d)", p.Operation.EntityType, p.Operation.Bundle, p.Index, p.Total)
				bar.Update(p.Fraction, label)
			}
		}

		res, err := a.PerformIndexing(ctx, opts)
		if bar != nil {
			bar.Done()
		}
		if err != nil {
			if errors.Is(err, index.ErrIndexLocked) {
				return handleError(ErrIndexLocked, err, "Another reindex is running; wait for it to finish")
			}
			if res != nil {
				return handleErrorWithDetails(ErrReindexFailed, indexer.FailureMessage,
					"Run 'erdep reindex --resume' to continue", map[string]any{"count": res.Count, "cause": err.Error()})
			}
			return handleError(ErrDatabaseError, err, "")
		}

		var warnings []Warning
		for _, f := range res.Failures {
			warnings = append(warnings, Warning{
				Code:    WarnEntityFailures,
				Message: f.Error,
				Ref:     model.Ref(f.EntityType, f.ID).Key(),
			})
		}

		if isJSONOutput() {
			outputSuccessWithWarnings(res, warnings, &Meta{Count: res.Count, QueryTimeMs: time.Since(start).Milliseconds()})
			return nil
		}

		fmt.Println(ui.Success(res.Message))
		for _, w := range warnings {
			fmt.Println(ui.Warningf("%s: %s", ui.EntityKey(w.Ref), w.Message))
		}
		if res.Resumed {
			fmt.Println(ui.Hint("resumed from checkpoint"))
		}
		return nil
	},
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexResume, "resume", false, "Continue an interrupted rebuild")
	reindexCmd.Flags().IntVar(&reindexPageSize, "page-size", 0, "Entities per page (default: [index] page_size)")
	rootCmd.AddCommand(reindexCmd)
}
