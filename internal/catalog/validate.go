package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a persisted definition before it is trusted: id and name
// are required, and every file and patch needs a path.
func Validate(def *Definition) error {
	if def == nil {
		return fmt.Errorf("definition is nil")
	}
	if err := validate.Struct(def); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return fmt.Errorf("invalid definition %q: missing %s", def.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid definition %q: %w", def.ID, err)
	}
	return nil
}

// Complexity scores a definition in [0,1] from its size: files, stack,
// tags and total template length.
func Complexity(def *Definition) float64 {
	c := float64(len(def.Files))*0.1 + float64(len(def.Patches))*0.1 +
		float64(len(def.Stack))*0.2 + float64(len(def.Tags))*0.05
	for _, f := range def.Files {
		c += float64(strings.Count(f.Content, "\n")) * 0.01
	}
	c /= 10
	if c > 1 {
		return 1
	}
	return c
}
