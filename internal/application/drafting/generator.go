package drafting

import "context"

// Generator is the generative backend of the pipeline.
type Generator interface {
	// Decompose splits a free-form prompt into atomic intents.
	Decompose(ctx context.Context, prompt string) ([]string, error)

	// Draft turns intents into task proposals for the named project.
	Draft(ctx context.Context, req DraftRequest) ([]Proposal, error)
}

// DraftRequest is the input of Generator.Draft.
type DraftRequest struct {
	ProjectName string
	Intents     []string
}

// Proposal is one task suggested by the generator, before validation.
type Proposal struct {
	Subject    string  `json:"subject"`
	Priority   string  `json:"priority"`
	Weight     float64 `json:"weight"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}
