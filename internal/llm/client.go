// Package llm implements batch classification of videos against a folder
// catalogue using one of two interchangeable AI providers. Providers differ
// in request envelope and authentication header only; both are normalized
// to a single prompt-in, text-out contract.
package llm

import (
	"context"
	"time"
)

// Client defines the provider-agnostic completion interface.
type Client interface {
	// Complete sends a prompt with a system instruction and returns the
	// provider's raw text response.
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// Config holds configuration for a provider client.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // test override; empty means the provider default
	Timeout  time.Duration
}
