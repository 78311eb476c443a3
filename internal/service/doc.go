// Package service contains the application-specific use cases of the
// planner. It orchestrates domain objects, the relational stores defined in
// internal/store, and the generation adapter to fulfill application features.
//
// Key components:
//
// 1. ScheduleService persists a generated plan as a schedule with plan items
// and subtopics in one transaction, optionally scheduling a study reminder.
//
// 2. SubtopicService toggles subtopic completion. Completing the last open
// subtopic of a plan item generates its quiz; if generation or persistence
// fails, a compensating write reopens the subtopic so the user can retry.
//
// 3. QuizService generates or regenerates the quiz of a fully completed plan
// item on demand. The quiz-generation job family runs through it.
//
// Services receive dependencies through constructor injection and never
// depend on specific infrastructure implementations.
package service
