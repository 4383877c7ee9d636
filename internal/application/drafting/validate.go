package drafting

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// draftRules are the structural checks a proposal must pass before it can
// become a task.
type draftRules struct {
	Subject    string  `validate:"min=5"`
	Weight     float64 `validate:"gt=0"`
	Priority   string  `validate:"oneof=Low Medium High Urgent"`
	Confidence float64 `validate:"gte=0,lte=1"`
}

var ruleMessages = map[string]string{
	"Subject":    "Subject must be at least 5 characters",
	"Weight":     "Weight must be greater than 0",
	"Priority":   "Invalid priority level",
	"Confidence": "Confidence must be between 0 and 1",
}

// Check returns the human-readable validation failures of p, or nil.
func Check(p Proposal) []string {
	err := validate.Struct(draftRules{
		Subject:    p.Subject,
		Weight:     p.Weight,
		Priority:   p.Priority,
		Confidence: p.Confidence,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, ruleMessages[fe.Field()])
	}
	return problems
}
