package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <type> <id>",
	Short: "Delete an entity and run the cascade policy",
	Long: `Deletes an entity the way the host does: references to it are removed
from other entities, and when cascade delete is enabled its dependents of
the allowed types are queued for deletion by the worker.

Examples:
  erdep delete taxonomy_term 9
  erdep delete node__5 --force --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref, err := parseRefArgs(args)
		if err != nil {
			return handleError(ErrRefInvalid, err, "Use <type> <id> or <type>__<id>")
		}

		if !deleteForce {
			if !canConfirmDelete() {
				return handleErrorMsg(ErrConfirmationRequired,
					fmt.Sprintf("refusing to delete %s without confirmation", ref), "Pass --force")
			}
			if !confirmDelete(os.Stdin, os.Stdout, deletePrompt(ref, getConfig())) {
				fmt.Println(ui.Hint("Cancelled"))
				return nil
			}
		}

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer a.Close()

		res, err := a.DeleteEntity(ctx, ref)
		if err != nil {
			return handleDomainError(err, "")
		}

		if isJSONOutput() {
			outputSuccess(res, &Meta{Count: len(res.Queued)})
			return nil
		}

		fmt.Println(ui.Successf("Deleted %s", ui.EntityKey(ref.Key())))
		if res.Cleaned > 0 {
			fmt.Println(ui.Infof("Removed the reference from %s", ui.Count(res.Cleaned, "record")))
		}
		if len(res.Queued) > 0 {
			fmt.Println(ui.Infof("Queued %s for deletion", ui.Count(len(res.Queued), "dependent")))
			for _, key := range res.Queued {
				fmt.Printf("  %s\n", ui.EntityKey(key))
			}
			fmt.Println(ui.Hint("Run 'erdep worker --once' or keep 'erdep worker' running to process the queue"))
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
