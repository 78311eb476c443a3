package generation

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when the agent call itself fails (transport, quota, timeout)
	ErrGenerationFailed = errors.New("generation agent call failed")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the agent configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrInvalidRequest is returned when the structured input fails validation before any agent call
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrUnknownPromptKind is returned for a prompt kind without a template
	ErrUnknownPromptKind = errors.New("unknown prompt kind")

	// ErrEmptyResponse is returned when the agent answers with blank text
	ErrEmptyResponse = errors.New("agent returned an empty response")

	// ErrUnparsableResponse is returned when no JSON object or array can be found in the response
	ErrUnparsableResponse = errors.New("no JSON object or array found in agent response")

	// ErrMalformedJSON is returned when the extracted JSON cannot be decoded
	ErrMalformedJSON = errors.New("agent response contains malformed JSON")

	// ErrSchemaValidation is returned when decoded JSON violates the expected shape
	ErrSchemaValidation = errors.New("agent response does not match the expected schema")
)

// SchemaValidationError lists the fields of a decoded response that violated the schema.
type SchemaValidationError struct {
	Kind   PromptKind
	Fields []string
}

// Error implements the error interface for SchemaValidationError.
func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s for %s: %s", ErrSchemaValidation.Error(), e.Kind, strings.Join(e.Fields, ", "))
}

// Unwrap allows errors.Is(err, ErrSchemaValidation).
func (e *SchemaValidationError) Unwrap() error {
	return ErrSchemaValidation
}

// IsUnusableResponse reports whether err means the agent answered but its output could not be used.
func IsUnusableResponse(err error) bool {
	return errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrUnparsableResponse) ||
		errors.Is(err, ErrMalformedJSON) ||
		errors.Is(err, ErrSchemaValidation)
}
