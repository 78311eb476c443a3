// Package postgres provides PostgreSQL-specific implementations for the
// storage interfaces defined in the internal/store package: schedules, plan
// items with their subtopics and quizzes, and quiz attempt statistics.
// It also embeds the goose migrations that create the schema.
package postgres
