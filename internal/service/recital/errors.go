package recital

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrGenerationFailed    = errors.New("reply generation failed")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
