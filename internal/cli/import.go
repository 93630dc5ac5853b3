package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IgorPritula/entity-ref-dependency/internal/app"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import <file>...",
	Aliases: []string{"save"},
	Short:   "Save entities from YAML files and index them",
	Long: `Reads entities from YAML files (use - for stdin) and saves each through
the save hook: the entity is validated against the content model, stored,
and its index rows are replaced.

A file holds one entity per YAML document:

  type: node
  id: "5"
  bundle: article
  label: Hello
  fields:
    field_tags:
      - target_id: "9"
  ---
  type: taxonomy_term
  id: "9"
  bundle: tags

Examples:
  erdep import entities.yaml
  cat node.yaml | erdep save - --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var entities []*model.Entity
		for _, path := range args {
			batch, err := readEntities(path)
			if err != nil {
				return handleError(ErrFileReadError, err, "")
			}
			entities = append(entities, batch...)
		}

		a, err := openApp(ctx)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer a.Close()

		var saved []*app.SaveResult
		for _, e := range entities {
			res, err := a.SaveEntity(ctx, e)
			if err != nil {
				return handleDomainError(err, fmt.Sprintf("%d of %d entities were saved before the error", len(saved), len(entities)))
			}
			saved = append(saved, res)
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"saved": saved}, &Meta{Count: len(saved)})
			return nil
		}
		for _, res := range saved {
			fmt.Println(ui.Successf("Saved %s %s", ui.EntityKey(res.Ref.Key()), ui.Hint(ui.Count(res.Rows, "reference"))))
		}
		return nil
	},
}

// readEntities decodes every YAML document in path ("-" for stdin).
func readEntities(path string) ([]*model.Entity, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return decodeEntities(r, path)
}

func decodeEntities(r io.Reader, name string) ([]*model.Entity, error) {
	dec := yaml.NewDecoder(r)
	var out []*model.Entity
	for i := 1; ; i++ {
		var e model.Entity
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: document %d: %w", name, i, err)
		}
		if e.Type == "" && e.ID == "" {
			continue
		}
		if e.Type == "" || e.ID == "" {
			return nil, fmt.Errorf("%s: document %d: type and id are required", name, i)
		}
		out = append(out, &e)
	}
}

func init() {
	rootCmd.AddCommand(importCmd)
}
