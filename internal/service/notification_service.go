package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/events"
)

// Broadcaster fans a serialized event out to other processes.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, payload []byte) error
}

// NotificationService logs ticket events and forwards them to a Broadcaster.
type NotificationService struct {
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	cfg         config.NotificationConfig
	broadcaster Broadcaster
}

// NewNotificationService creates the service. broadcaster may be nil, in which
// case events are only logged.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, broadcaster Broadcaster) *NotificationService {
	return &NotificationService{
		dispatcher:  dispatcher,
		logger:      logger,
		cfg:         cfg,
		broadcaster: broadcaster,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketEvent)
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int64("user_id", event.Actor.UserID))
	return n.broadcast(ctx, event)
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event) error {
	if n.broadcaster == nil || n.cfg.RedisChannel == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := n.broadcaster.Broadcast(ctx, n.cfg.RedisChannel, payload); err != nil {
		return fmt.Errorf("broadcast %s event: %w", event.Type, err)
	}
	n.logger.Debug("ticket event broadcast",
		zap.String("channel", n.cfg.RedisChannel),
		zap.String("event_id", event.ID))
	return nil
}
