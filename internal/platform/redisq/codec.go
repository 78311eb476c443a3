package redisq

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/phrazzld/scry-planner/internal/task"
)

// Hash fields of a job key. State, progress and priority live beside the
// JSON document so the lease script and progress updates can touch them
// without rewriting the document. Stalls counts expired leases not yet
// folded into the document's attempt count.
const (
	fieldData     = "data"
	fieldState    = "state"
	fieldProgress = "progress"
	fieldPriority = "priority"
	fieldStalls   = "stalls"
)

func encodeJob(job *task.Job) (map[string]any, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	return map[string]any{
		fieldData:     string(data),
		fieldState:    string(job.State),
		fieldProgress: job.Progress,
		fieldPriority: job.Priority,
		fieldStalls:   0,
	}, nil
}

func decodeJob(fields map[string]string) (*task.Job, error) {
	var job task.Job
	if err := json.Unmarshal([]byte(fields[fieldData]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	if state, ok := fields[fieldState]; ok && state != "" {
		job.State = task.JobState(state)
	}
	if raw, ok := fields[fieldProgress]; ok && raw != "" {
		progress, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode progress of job %s: %w", job.ID, err)
		}
		job.Progress = progress
	}
	if raw, ok := fields[fieldStalls]; ok && raw != "" {
		stalls, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stalls of job %s: %w", job.ID, err)
		}
		job.AttemptsMade += stalls
	}
	return &job, nil
}
