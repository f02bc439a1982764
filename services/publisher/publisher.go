package publisher

import (
	"context"
	"time"
)

// EventJobInserted is published once per newly stored job
const EventJobInserted = "job_inserted"

// JobEvent describes a change to the job store
type JobEvent struct {
	Type      string    `json:"type"`
	JobID     int64     `json:"job_id"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	SourceURL *string   `json:"source_url"`
	At        time.Time `json:"at"`
}

// Publisher represents a service for publishing job events
type Publisher interface {
	// Publish publishes an event to a stream
	Publish(ctx context.Context, event JobEvent) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, JobEvent) error { return nil }
func (Nop) TrimStreams(context.Context) error       { return nil }
func (Nop) Close() error                            { return nil }
