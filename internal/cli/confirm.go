package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/IgorPritula/entity-ref-dependency/internal/config"
	"github.com/IgorPritula/entity-ref-dependency/internal/model"
	"github.com/IgorPritula/entity-ref-dependency/internal/ui"
)

// canConfirmDelete reports whether delete may ask on the terminal.
func canConfirmDelete() bool {
	if isJSONOutput() {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

// deletePrompt names ref and, when cascade delete is on, the dependent types
// that would be queued along with it.
func deletePrompt(ref model.EntityRef, c *config.Config) string {
	key := ui.EntityKey(ref.Key())
	if c == nil || !c.Cascade.AllowCascadeDelete || len(c.Cascade.AllowedEntityTypes) == 0 {
		return fmt.Sprintf("Delete %s and remove references to it?", key)
	}
	return fmt.Sprintf("Delete %s? Dependents of type %s will be queued for deletion.",
		key, strings.Join(c.Cascade.AllowedEntityTypes, ", "))
}

// confirmDelete writes prompt to out and reads one answer line from in.
// Only y or yes confirms.
func confirmDelete(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s %s ", prompt, ui.Hint("[y/N]"))
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
