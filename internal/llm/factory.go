package llm

import (
	"fmt"
	"strings"
)

// NewClient creates a provider client based on the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return newGeminiClient(cfg)
	case "claude":
		return newClaudeClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported classification provider: %s", cfg.Provider)
	}
}
