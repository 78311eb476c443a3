package rabbitmq

import (
	"context"

	"github.com/phrazzld/scry-planner/internal/events"
)

// JobEventPublisher forwards job events to the exchange, routed by event type
// ("job.completed", "job.failed", "job.retrying").
type JobEventPublisher struct {
	pub *Publisher
}

var _ events.EventHandler = (*JobEventPublisher)(nil)

// NewJobEventPublisher creates a JobEventPublisher over pub.
func NewJobEventPublisher(pub *Publisher) *JobEventPublisher {
	return &JobEventPublisher{pub: pub}
}

// HandleEvent implements events.EventHandler.
func (p *JobEventPublisher) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	_, err := p.pub.Publish(ctx, event.Type, event)
	return err
}
