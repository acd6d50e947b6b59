package model

// Provider identifies a classification provider.
type Provider string

// Supported classification providers.
const (
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
)

// Default models per provider.
const (
	DefaultGeminiModel = "gemini-3-flash-preview"
	DefaultClaudeModel = "claude-3-5-haiku-latest"
)

// Settings carries the user-tunable configuration persisted in the store.
type Settings struct {
	Provider       Provider `json:"provider"`
	APIKey         string   `json:"api_key"`
	GeminiAPIKey   string   `json:"gemini_api_key"`
	Model          string   `json:"model"`
	SourceFolderID int64    `json:"source_folder_id"`
}

// ActiveProvider returns the configured provider, defaulting to gemini.
func (s Settings) ActiveProvider() Provider {
	if s.Provider == "" {
		return ProviderGemini
	}
	return s.Provider
}

// ActiveKey returns the API key for the configured provider.
func (s Settings) ActiveKey() string {
	if s.ActiveProvider() == ProviderGemini {
		return s.GeminiAPIKey
	}
	return s.APIKey
}

// ActiveModel returns the configured model, falling back to the
// provider's default.
func (s Settings) ActiveModel() string {
	if s.Model != "" {
		return s.Model
	}
	if s.ActiveProvider() == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultClaudeModel
}

// OperationStatus is the transient per-pipeline status. It is not
// persisted; a process restart reconstructs it as {InProgress: false}.
type OperationStatus struct {
	InProgress bool   `json:"in_progress"`
	Progress   string `json:"progress,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}
