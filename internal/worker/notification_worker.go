package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/service"
)

// ErrQueueFull is returned when the forwarding buffer has no room.
var ErrQueueFull = errors.New("notification queue full")

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// ForwardingWorker decouples request handling from broker latency: Forward
// enqueues and a single goroutine drains the queue into the sink.
type ForwardingWorker struct {
	sink   service.Forwarder
	queue  chan events.Event
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewForwardingWorker buffers up to size events for sink.
func NewForwardingWorker(sink service.Forwarder, size int, logger *zap.Logger) *ForwardingWorker {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForwardingWorker{sink: sink, queue: make(chan events.Event, size), logger: logger}
}

// Forward implements service.Forwarder without blocking.
func (w *ForwardingWorker) Forward(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("dropping event", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return ErrQueueFull
	}
}

// Start drains the queue until ctx is cancelled, then flushes what is left.
func (w *ForwardingWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event := <-w.queue:
				w.deliver(ctx, event)
			case <-ctx.Done():
				w.flush()
				return
			}
		}
	}()
}

// Wait blocks until the drain goroutine has exited.
func (w *ForwardingWorker) Wait() {
	w.wg.Wait()
}

func (w *ForwardingWorker) flush() {
	for {
		select {
		case event := <-w.queue:
			w.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (w *ForwardingWorker) deliver(ctx context.Context, event events.Event) {
	if err := w.sink.Forward(ctx, event); err != nil {
		w.logger.Warn("event delivery failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}
