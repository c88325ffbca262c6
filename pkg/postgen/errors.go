package postgen

import "errors"

// ErrRateLimited is returned when a user exceeds their generation budget.
var ErrRateLimited = errors.New("Слишком много запросов на генерацию, попробуйте позже")

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GenerationError wraps any failure after validation with the user-facing prefix.
type GenerationError struct {
	Cause error
}

const generationFailed = "Не удалось сгенерировать пост"

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return generationFailed
	}
	return generationFailed + ": " + e.Cause.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
