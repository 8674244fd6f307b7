package bus

import (
	"context"
	"io"
	"log"
)

// NullBus is a no-op implementation of the bus interface for when Redis is
// not configured.
type NullBus struct {
	logger *log.Logger
}

// NewNullBus creates a new null bus instance.
func NewNullBus(logger *log.Logger) *NullBus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &NullBus{logger: logger}
}

// Publish logs the event but doesn't actually publish it.
func (nb *NullBus) Publish(ctx context.Context, ev Event) error {
	nb.logger.Printf("activity %s not mirrored (bus disabled)", ev.Type)
	return nil
}

// Close is a no-op for null bus.
func (nb *NullBus) Close() error {
	return nil
}
