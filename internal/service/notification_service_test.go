package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/events"
)

func TestNotificationServiceBroadcastsTicketEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	broadcaster := &fakeBroadcaster{}
	notifications := NewNotificationService(dispatcher, zap.NewNop(),
		config.NotificationConfig{RedisChannel: "kanban:test"}, broadcaster)
	notifications.RegisterHandlers()

	svc := NewTicketService(TicketDependencies{TicketRepo: &fakeTicketRepo{}, Dispatcher: dispatcher})
	ctx := context.Background()
	ticket, err := svc.CreateTicket(ctx, 5, TicketCreateInput{Title: "t", Description: "d", Labels: []string{"bug"}})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.UpdateTicket(ctx, 5, ticket.ID, TicketUpdateInput{Title: strPtr("t2")}); err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if err := svc.DeleteTicket(ctx, 5, ticket.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}

	if len(broadcaster.payloads) != 3 {
		t.Fatalf("broadcast count = %d, want 3", len(broadcaster.payloads))
	}
	wantTypes := []events.EventType{events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketDeleted}
	for i, raw := range broadcaster.payloads {
		if broadcaster.channels[i] != "kanban:test" {
			t.Errorf("channel[%d] = %q", i, broadcaster.channels[i])
		}
		var decoded struct {
			Type     events.EventType `json:"type"`
			TicketID string           `json:"ticket_id"`
			Actor    struct {
				UserID int64 `json:"user_id"`
			} `json:"actor"`
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		if decoded.Type != wantTypes[i] || decoded.TicketID != ticket.ID || decoded.Actor.UserID != 5 {
			t.Errorf("payload %d = %+v", i, decoded)
		}
	}
}

func TestNotificationServiceWithoutBroadcaster(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{RedisChannel: "c"}, nil).RegisterHandlers()
	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}); err != nil {
		t.Errorf("Publish: %v", err)
	}
}

func TestNotificationServiceSurfacesBroadcastErrors(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	boom := errors.New("redis gone")
	NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{RedisChannel: "c"},
		&fakeBroadcaster{err: boom}).RegisterHandlers()
	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketID: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("Publish err = %v, want wrapped %v", err, boom)
	}
}
