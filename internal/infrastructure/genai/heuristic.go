package genai

import (
	"context"
	"strings"
	"unicode"

	"github.com/rezkam/atlas/internal/application/drafting"
)

// Heuristic is an offline generator used when no Gemini key is configured.
// It splits the prompt into clauses and drafts one Medium task per clause.
type Heuristic struct{}

var _ drafting.Generator = Heuristic{}

// Decompose splits prompt on sentence and clause boundaries.
func (Heuristic) Decompose(_ context.Context, prompt string) ([]string, error) {
	clauses := strings.FieldsFunc(prompt, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n' || r == '!' || r == '?'
	})

	var intents []string
	for _, clause := range clauses {
		for _, piece := range strings.Split(clause, " and ") {
			piece = strings.TrimSpace(piece)
			if len(strings.Fields(piece)) < 2 {
				continue
			}
			intents = append(intents, capitalize(piece))
		}
	}
	return intents, nil
}

// Draft proposes one task per intent.
func (Heuristic) Draft(_ context.Context, req drafting.DraftRequest) ([]drafting.Proposal, error) {
	proposals := make([]drafting.Proposal, 0, len(req.Intents))
	for _, intent := range req.Intents {
		proposals = append(proposals, drafting.Proposal{
			Subject:    intent,
			Priority:   "Medium",
			Weight:     3,
			Confidence: 0.75,
			Reasoning:  "Drafted offline from the prompt text",
		})
	}
	return proposals, nil
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
