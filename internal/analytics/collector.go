package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/kafka"
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers events and hands them to the aggregator and, when set,
// to per-kind publishers from a single background goroutine. Track never
// blocks; events are dropped when the buffer is full.
type Collector struct {
	searchPub  Publisher
	indexPub   Publisher
	aggregator *Aggregator
	eventCh    chan any
	logger     *slog.Logger
	done       chan struct{}
	started    atomic.Bool
	mu         sync.RWMutex
	closed     bool
}

// NewCollector creates a Collector. Either publisher may be nil, in which case
// events of that kind are only aggregated.
func NewCollector(searchPub, indexPub Publisher, agg *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if agg == nil {
		agg = NewAggregator()
	}
	return &Collector{
		searchPub:  searchPub,
		indexPub:   indexPub,
		aggregator: agg,
		eventCh:    make(chan any, bufferSize),
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
	}
}

// Aggregator returns the in-process aggregate the collector feeds.
func (c *Collector) Aggregator() *Aggregator {
	return c.aggregator
}

func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.handle(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues a SearchEvent or IndexEvent. Events tracked after Close are
// dropped.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for queued ones to be handled. A
// collector that was never started handles them inline.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	if !c.started.Load() {
		c.drainRemaining()
		return
	}
	<-c.done
}

func (c *Collector) handle(ctx context.Context, event any) {
	var (
		pub Publisher
		key string
	)
	switch e := event.(type) {
	case SearchEvent:
		c.aggregator.RecordSearch(e)
		pub, key = c.searchPub, string(e.Type)
	case IndexEvent:
		c.aggregator.RecordIndex(e)
		pub, key = c.indexPub, e.Generation
	default:
		c.logger.Warn("unknown analytics event", "type", fmt.Sprintf("%T", event))
		return
	}
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, kafka.Event{Key: key, Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "key", key, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.handle(context.Background(), event)
		default:
			return
		}
	}
}
