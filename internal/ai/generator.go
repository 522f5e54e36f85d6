package ai

import (
	"context"

	"github.com/spigell/talenthub/internal/prompt"
)

// Request is a single structured-output call to a generative model.
type Request struct {
	// Flow names the caller for logging.
	Flow string
	// System is an optional system instruction.
	System string
	Parts  []prompt.Part
	// Schema is the declared response shape. Providers that support
	// constrained decoding pass it through; the caller still validates.
	Schema      *Schema
	Temperature *float32
}

// Generator sends a request to a model and returns its raw text output. A
// failed call returns an *UpstreamError. Implementations do not retry.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
	Provider() string
	Model() string
}
