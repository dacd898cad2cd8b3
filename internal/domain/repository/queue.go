package repository

import (
	"context"

	"github.com/google/uuid"
)

// ResolveTask asks a worker to resolve a URL and publish the result to the cache.
type ResolveTask struct {
	TaskID      uuid.UUID `json:"task_id"`
	URL         string    `json:"url"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RetryCount  int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishResolveTask sends a resolution task to the queue.
	PublishResolveTask(ctx context.Context, task ResolveTask) error

	// ConsumeResolveTasks blocks, calling handler for each received task,
	// until ctx is cancelled.
	ConsumeResolveTasks(ctx context.Context, handler func(task ResolveTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
