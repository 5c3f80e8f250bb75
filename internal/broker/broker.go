package broker

import "context"

// EventQueue is the message-bus boundary. Publish is synchronous up to
// the broker acknowledgment and keyed for partitioning; Consume runs
// until the context is cancelled, invoking the handler for every
// message.
type EventQueue interface {
	Publish(ctx context.Context, key string, data []byte) error
	Consume(ctx context.Context, handler func([]byte) error) error
	Close() error
}
