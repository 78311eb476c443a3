// Package domain contains the study-planning entities the job engine reads
// and writes: schedules, their plan items and subtopics, the quiz attached to
// a fully completed plan item, and aggregated quiz-attempt statistics.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
