package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var refsCmd = &cobra.Command{
	Use:   "refs <type> <id>",
	Short: "List index rows that reference an entity",
	Long: `Shows every indexed reference pointing at the entity, regardless of
the cascade settings.

Examples:
  erdep refs taxonomy_term 9
  erdep refs node__5 --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref, err := parseRefArgs(args)
		if err != nil {
			return handleError(ErrRefInvalid, err, "Use <type> <id> or <type>__<id>")
		}

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer a.Close()

		rows, err := a.Refs(ctx, ref)
		if err != nil {
			return handleDomainError(err, "")
		}
		if rows == nil {
			rows = []model.IndexRow{}
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"refs": rows}, &Meta{Count: len(rows)})
			return nil
		}

		if len(rows) == 0 {
			fmt.Println(ui.Hint(fmt.Sprintf("No references to %s", ref)))
			return nil
		}
		fmt.Println(ui.Header(fmt.Sprintf("References to %s", ref)) + " " + ui.Hint(ui.Count(len(rows), "row")))
		tbl := ui.NewTable(2)
		for _, r := range rows {
			tbl.AddRow(ui.EntityKey(r.Subject.Key()), ui.Field(r.FieldName))
		}
		fmt.Print(tbl.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refsCmd)
}
