package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Displays row, subject and target counts of the reference index and the
number of pending deferred delete jobs.

Examples:
  erdep stats
  erdep stats --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "Run 'erdep reindex' to rebuild the database")
		}
		defer a.Close()

		stats, err := a.Stats(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(stats, &Meta{QueryTimeMs: time.Since(start).Milliseconds()})
			return nil
		}

		// Human-readable output
		fmt.Println(ui.Header("Index Statistics"))
		fmt.Printf("%s  %s\n", ui.Muted.Render("References:"), ui.Accent.Render(fmt.Sprintf("%d", stats.Rows)))
		fmt.Printf("%s  %s\n", ui.Muted.Render("Subjects:  "), ui.Accent.Render(fmt.Sprintf("%d", stats.Subjects)))
		fmt.Printf("%s  %s\n", ui.Muted.Render("Targets:   "), ui.Accent.Render(fmt.Sprintf("%d", stats.Targets)))
		fmt.Printf("%s  %s\n", ui.Muted.Render("Queued:    "), ui.Accent.Render(fmt.Sprintf("%d", stats.Queued)))
		fmt.Printf("%s  %s\n", ui.Muted.Render("Driver:    "), stats.Driver)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
