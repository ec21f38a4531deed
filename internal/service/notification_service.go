package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/events"
)

// Forwarder ships events outside the process.
type Forwarder interface {
	Forward(ctx context.Context, event events.Event) error
}

// NotificationService logs domain events and forwards them to a broker when one is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	forwarder  Forwarder
}

// NewNotificationService creates the service. forwarder may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, forwarder Forwarder) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		forwarder:  forwarder,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("post_id", event.PostID),
		zap.Any("payload", event.Payload))

	if n.forwarder == nil {
		return nil
	}
	if err := n.forwarder.Forward(ctx, event); err != nil {
		n.logger.Warn("event forward failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}
