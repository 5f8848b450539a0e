// Package modelclient talks to a generative model and turns its free-text
// answers into JSON objects.
package modelclient

import (
	"context"
	"errors"
)

// Schema describes the JSON object the model is asked to produce.
type Schema map[string]any

// Client requests a structured completion. Implementations must honour ctx
// cancellation; callers treat every error as "no enhancement".
type Client interface {
	StructuredCompletion(ctx context.Context, prompt string, schema Schema) (map[string]any, error)
}

// Pinger is implemented by clients that can check their server before use.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, prompt string, schema Schema) (map[string]any, error)

// StructuredCompletion calls f.
func (f ClientFunc) StructuredCompletion(ctx context.Context, prompt string, schema Schema) (map[string]any, error) {
	return f(ctx, prompt, schema)
}

var (
	// ErrNoJSON is returned when a response holds no decodable JSON object.
	ErrNoJSON = errors.New("no JSON object in model response")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("unexpected model response status")
)
