// Package gemini provides a generation.Agent backed by Google's Gemini API.
//
// The agent sends one rendered prompt per call, with a system instruction that
// describes the study-planner and quiz-generator tools the prompts refer to,
// and returns the model's raw text. Parsing and validation of that text is
// left to the generation.Adapter; this package only translates transport and
// safety failures into generation errors.
package gemini
