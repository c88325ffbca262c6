package llm

// Response is the assistant's reply to a chat completion call.
type Response struct {
	Model   string `json:"model"`
	Content string `json:"content"`

	// Token usage reported by the upstream
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}
