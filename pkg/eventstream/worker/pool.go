// Package worker provides an asynchronous pool that publishes memory graph
// events through a configured eventstream.Publisher. The pool decouples
// publishing from the API's request hot path: a slow or unreachable broker
// never delays a retrieval or feedback response.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memorygraphco/memorygraph/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 2
	defaultQueueSize    uint = 256
	defaultPublishBudget     = 5 * time.Second
)

// Config configures the publishing pool.
type Config struct {
	// Publisher is the backend events are delivered to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers (defaults to 2).
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// Logger receives delivery failures.
	Logger *slog.Logger
}

// Pool publishes events asynchronously via a fixed set of workers.
type Pool struct {
	config *Config
	queue  chan *eventstream.Event
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a pool and starts its worker goroutines.
func NewPool(c *Config) *Pool {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}

	p := &Pool{
		config: c,
		queue:  make(chan *eventstream.Event, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p
}

// Enqueue stamps the event with an id and timestamp and submits it for
// publishing. Returns false if the queue is full and the event was dropped.
func (p *Pool) Enqueue(event *eventstream.Event) bool {
	if event == nil {
		return false
	}

	event.SchemaVersion = eventstream.SchemaVersionV1
	event.EventID = uuid.NewString()
	event.EmittedAt = time.Now().UTC()

	select {
	case p.queue <- event:
		return true
	default:
		p.logger.Error("event queue full, event dropped",
			"event_type", event.EventType,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight events to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultPublishBudget)
		if err := p.config.Publisher.Publish(ctx, event); err != nil {
			p.logger.Error("event publish failed",
				"event_type", event.EventType,
				"event_id", event.EventID,
				"error", err,
			)
		}
		cancel()
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}
