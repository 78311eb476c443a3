package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrSubtopicIndexOutOfRange is returned when a subtopic position does not exist on a plan item.
	ErrSubtopicIndexOutOfRange = errors.New("subtopic index out of range")

	// ErrInvalidOptionCount is returned when a question does not carry exactly QuestionOptionCount options.
	ErrInvalidOptionCount = errors.New("question must have exactly 4 options")

	// ErrInvalidOptionLabel is returned when the correct option label does not name one of the options.
	ErrInvalidOptionLabel = errors.New("correct option label must be one of A, B, C, D")

	// ErrQuizWithoutQuestions is returned when a quiz has no questions.
	ErrQuizWithoutQuestions = errors.New("quiz must have at least one question")
)
