package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change operator settings",
	Long: `Reads and writes the cascade settings in the config file.

Examples:
  erdep config show
  erdep config cascade on
  erdep config allow node comment
  erdep config disallow comment`,
}

type cascadeSettings struct {
	Path               string   `json:"path"`
	AllowCascadeDelete bool     `json:"allow_cascade_delete"`
	AllowedEntityTypes []string `json:"allowed_entity_types"`
	MaxDepth           int      `json:"max_depth"`
	Changed            []string `json:"changed,omitempty"`
}

func currentSettings(c *config.Config, changed []string) cascadeSettings {
	types := c.Cascade.AllowedEntityTypes
	if types == nil {
		types = []string{}
	}
	return cascadeSettings{
		Path:               c.Path(),
		AllowCascadeDelete: c.Cascade.AllowCascadeDelete,
		AllowedEntityTypes: types,
		MaxDepth:           c.Cascade.MaxDepth,
		Changed:            changed,
	}
}

func printSettings(s cascadeSettings) {
	state := "off"
	if s.AllowCascadeDelete {
		state = "on"
	}
	types := strings.Join(s.AllowedEntityTypes, ", ")
	if types == "" {
		types = ui.Hint("(none)")
	}
	fmt.Printf("%s  %s\n", ui.Muted.Render("Config:        "), s.Path)
	fmt.Printf("%s  %s\n", ui.Muted.Render("Cascade delete:"), ui.Accent.Render(state))
	fmt.Printf("%s  %s\n", ui.Muted.Render("Allowed types: "), types)
	fmt.Printf("%s  %d\n", ui.Muted.Render("Max depth:     "), s.MaxDepth)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cascade settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := currentSettings(getConfig(), nil)
		if isJSONOutput() {
			outputSuccess(s, nil)
			return nil
		}
		printSettings(s)
		return nil
	},
}

var configCascadeCmd = &cobra.Command{
	Use:       "cascade <on|off>",
	Short:     "Enable or disable cascade deletion of dependents",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes", "1":
			enabled = true
		case "off", "false", "no", "0":
		default:
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("expected on or off, got %q", args[0]), "")
		}

		c := getConfig()
		c.SetCascade(enabled)
		return saveSettings(c, nil, nil)
	},
}

var configAllowCmd = &cobra.Command{
	Use:   "allow <type>...",
	Short: "Add entity types whose dependents may be cascade deleted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		warnings := unknownTypeWarnings(c, args)
		added := c.Allow(args...)
		return saveSettings(c, added, warnings)
	},
}

var configDisallowCmd = &cobra.Command{
	Use:   "disallow <type>...",
	Short: "Remove entity types from the cascade allow-list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		removed := c.Disallow(args...)
		var warnings []Warning
		if len(removed) == 0 {
			warnings = append(warnings, Warning{Code: WarnNoChange, Message: "none of the given types were allowed"})
		}
		return saveSettings(c, removed, warnings)
	},
}

// unknownTypeWarnings flags types that are not fieldable in the content
// model. They are still accepted since the model may change later.
func unknownTypeWarnings(c *config.Config, types []string) []Warning {
	m, err := schema.Load(c.ModelPath())
	if err != nil {
		return []Warning{{Code: WarnUnknownType, Message: "content model not readable: " + err.Error()}}
	}
	fieldable := m.FieldableTypes()
	var warnings []Warning
	for _, t := range types {
		if _, ok := fieldable[strings.TrimSpace(t)]; !ok {
			warnings = append(warnings, Warning{
				Code:    WarnUnknownType,
				Message: fmt.Sprintf("%q is not a fieldable entity type in %s", t, c.ModelPath()),
				Ref:     t,
			})
		}
	}
	return warnings
}

func saveSettings(c *config.Config, changed []string, warnings []Warning) error {
	if err := config.Save(c); err != nil {
		return handleError(ErrFileWriteError, err, "")
	}
	s := currentSettings(c, changed)
	if isJSONOutput() {
		outputSuccessWithWarnings(s, warnings, nil)
		return nil
	}
	for _, w := range warnings {
		fmt.Println(ui.Warning(w.Message))
	}
	fmt.Println(ui.Successf("Saved %s", c.Path()))
	printSettings(s)
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configCascadeCmd, configAllowCmd, configDisallowCmd)
	rootCmd.AddCommand(configCmd)
}
