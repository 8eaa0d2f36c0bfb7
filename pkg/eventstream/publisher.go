// Package eventstream publishes fact lifecycle events to an event stream
// backend so downstream consumers (analytics, replay tooling) can observe
// the memory graph without polling it.
package eventstream

import "context"

// Publisher publishes memory graph events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
