package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

type bundleInfo struct {
	Bundle          string   `json:"bundle"`
	ReferenceFields []string `json:"reference_fields"`
}

type typeInfo struct {
	Type    string       `json:"type"`
	Label   string       `json:"label,omitempty"`
	Allowed bool         `json:"allowed"`
	Bundles []bundleInfo `json:"bundles"`
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List fieldable entity types and their reference fields",
	Long: `Lists the fieldable entity types of the content model with each bundle's
indexed reference fields, and marks the types allowed for cascade deletion.

Examples:
  erdep types
  erdep types --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		m, err := schema.Load(c.ModelPath())
		if err != nil {
			return handleError(ErrModelInvalid, err, "Fix the content model file")
		}

		allowed := c.AllowedTypes()
		var out []typeInfo
		for _, id := range m.FieldableTypeIDs() {
			ti := typeInfo{Type: id, Label: m.EntityTypes[id].Label, Allowed: allowed.Has(id)}
			for _, bundle := range m.Bundles(id) {
				fields := m.ListReferenceFields(id, bundle)
				if fields == nil {
					fields = []string{}
				}
				ti.Bundles = append(ti.Bundles, bundleInfo{Bundle: bundle, ReferenceFields: fields})
			}
			out = append(out, ti)
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"types": out}, &Meta{Count: len(out)})
			return nil
		}

		for _, ti := range out {
			line := ui.AccentBold.Render(ti.Type)
			if ti.Label != "" {
				line += " " + ui.Muted.Render(ti.Label)
			}
			if ti.Allowed {
				line += " " + ui.Hint("(cascade)")
			}
			fmt.Println(line)
			for _, b := range ti.Bundles {
				fields := strings.Join(b.ReferenceFields, ", ")
				if fields == "" {
					fields = ui.Hint("no reference fields")
				}
				fmt.Printf("  %s  %s\n", b.Bundle, fields)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
