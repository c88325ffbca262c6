package llm

// ErrorResponse is the JSON error body returned by the inkwell API.
type ErrorResponse struct {
	Error string `json:"error"`
}
