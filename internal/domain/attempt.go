package domain

// AttemptStats aggregates a user's quiz attempts.
type AttemptStats struct {
	TotalAttempts     int     `json:"totalAttempts"`
	AverageScore      float64 `json:"averageScore"`
	AveragePercentage float64 `json:"averagePercentage"`
}
