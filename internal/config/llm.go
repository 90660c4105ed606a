package config

import "os"

// LLMConfig holds the OpenAI-compatible chat completion settings used to
// answer free-text questions about a campaign
type LLMConfig struct {
	APIKey    string `json:"-"` // Never serialize
	BaseURL   string `json:"baseUrl"`
	Model     string `json:"model"`
	TimeoutMS int    `json:"timeoutMs"`
}

// DefaultLLMConfig returns the LLM configuration from the environment
func DefaultLLMConfig() (*LLMConfig, error) {
	timeout, err := getEnvInt("LLM_TIMEOUT_MS", 20000)
	if err != nil {
		return nil, err
	}
	return &LLMConfig{
		APIKey:    os.Getenv("OPENAI_API_KEY"),
		BaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		TimeoutMS: timeout,
	}, nil
}

// IsEnabled returns true if the LLM API is configured
func (c *LLMConfig) IsEnabled() bool {
	return c != nil && c.APIKey != ""
}
