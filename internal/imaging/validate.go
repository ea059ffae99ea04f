package imaging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"fahndung/internal/models"
)

// validate checks EditParams against their declared domains using the
// struct tags on models.EditParams.
var validate = validator.New(validator.WithRequiredStructEnabled())

// EditValidationError reports every edit parameter outside its domain.
// Validation is all-or-nothing: no transform is applied when any field
// is invalid.
type EditValidationError struct {
	Violations []string
}

func (e *EditValidationError) Error() string {
	return "invalid edit parameters: " + strings.Join(e.Violations, "; ")
}

// ValidateEditParams checks every field of p against its domain and returns
// an EditValidationError listing all violations, never just the first.
// A nil p is valid (no edits requested).
func ValidateEditParams(p *models.EditParams) error {
	if p == nil {
		return nil
	}

	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("imaging: validate edit params: %w", err)
	}

	verr := &EditValidationError{}
	for _, fe := range fieldErrs {
		verr.Violations = append(verr.Violations, describeViolation(fe))
	}
	return verr
}

// describeViolation turns a validator field error into a caller-readable
// message naming the field and its allowed domain.
func describeViolation(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s (got %v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s (got %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
