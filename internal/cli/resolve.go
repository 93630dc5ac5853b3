package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var (
	resolveRecursive bool
	resolveTypes     []string
	resolveMaxDepth  int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <type> <id>",
	Short: "Show the entities that depend on an entity",
	Long: `Lists the entities whose reference fields point at the given entity.
Only dependents of the --types entity types are considered (default: the
cascade allowed_entity_types). With --recursive the dependents of each
dependent are resolved as well; cycles are cut and marked as seen.

Examples:
  erdep resolve taxonomy_term 9
  erdep resolve node__5 --recursive --types node,comment
  erdep resolve node 5 -r --json`,
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

		req := dependency.Request{
			Target:    ref,
			Recursive: resolveRecursive,
			MaxDepth:  resolveMaxDepth,
			Allowed:   a.Policy().AllowedTypes,
		}
		if typesChanged(cmd.Flags()) {
			req.Allowed = model.NewTypeSet(resolveTypes...)
		}

		tree, err := a.Resolve(ctx, req)
		if err != nil {
			return handleDomainError(err, "")
		}

		count := 0
		tree.Walk(func(*dependency.Node, int) { count++ })

		if isJSONOutput() {
			outputSuccess(tree, &Meta{Count: count})
			return nil
		}

		if len(req.Allowed) == 0 {
			fmt.Println(ui.Warning("No dependent entity types selected; use --types or 'erdep config allow'"))
		}
		fmt.Print(ui.RenderTree(tree))
		fmt.Println(ui.Hint(ui.Count(count, "dependent")))
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVarP(&resolveRecursive, "recursive", "r", false, "Resolve dependents of dependents")
	addTypesFlag(resolveCmd.Flags(), &resolveTypes, "Dependent entity types to include (default: cascade allowed types)")
	resolveCmd.Flags().IntVar(&resolveMaxDepth, "max-depth", 0, "Recursion limit (default: [cascade] max_depth)")
	rootCmd.AddCommand(resolveCmd)
}
