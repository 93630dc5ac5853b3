package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/schema"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a config file and an example content model",
	Long: `Writes erdep.toml and content_model.yaml into dir (default: current
directory). Existing files are left untouched.

Examples:
  erdep init
  erdep init ./site`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path = filepath.Join(dir, "erdep.toml")
		}

		if err := config.CreateDefault(path); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}
		c, err := config.Load(path)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if err := schema.CreateDefault(c.ModelPath()); err != nil {
			return handleError(ErrFileWriteError, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]string{
				"config": path,
				"model":  c.ModelPath(),
			}, nil)
			return nil
		}
		fmt.Println(ui.Successf("Config: %s", ui.EntityKey(path)))
		fmt.Println(ui.Successf("Content model: %s", ui.EntityKey(c.ModelPath())))
		fmt.Println(ui.Hint("Next: edit the content model, then run 'erdep reindex'"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
