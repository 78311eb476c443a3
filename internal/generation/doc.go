// Package generation is the AI Generation Adapter: it renders a prompt that
// tells the external LLM agent to call a named tool with an exact JSON input,
// extracts the JSON the agent returns, and validates it against the expected
// study-plan or quiz schema. It performs no retries; callers decide whether a
// failure is retried.
package generation
