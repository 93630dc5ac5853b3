package cli

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

// parseRefArgs accepts either "<type> <id>" or a single "type__id" key.
func parseRefArgs(args []string) (model.EntityRef, error) {
	switch len(args) {
	case 1:
		return model.ParseKey(args[0])
	case 2:
		if args[0] == "" || args[1] == "" {
			return model.EntityRef{}, fmt.Errorf("%w: type and id must not be empty", model.ErrInvalidKey)
		}
		return model.Ref(args[0], args[1]), nil
	default:
		return model.EntityRef{}, fmt.Errorf("expected <type> <id> or <type>__<id>, got %d arguments", len(args))
	}
}

// addTypesFlag registers a repeatable, comma-separated --types flag.
func addTypesFlag(fs *pflag.FlagSet, target *[]string, usage string) {
	fs.StringSliceVarP(target, "types", "t", nil, usage)
}

// typesChanged reports whether --types was given, including an explicit
// empty value.
func typesChanged(fs *pflag.FlagSet) bool {
	f := fs.Lookup("types")
	return f != nil && f.Changed
}
