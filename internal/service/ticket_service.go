package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/repository"
	apperrors "github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Every operation is scoped to
// the calling user; tickets owned by someone else are reported as not found.
type TicketService struct {
	tickets       repository.TicketRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	strictUpdates bool
	now           func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// StrictUpdates rejects unknown priority/status values on update.
	StrictUpdates bool
	Clock         func() time.Time
}

// TicketCreateInput describes ticket creation payload. A nil Priority means
// the client did not send one.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    *domain.TicketPriority
	Labels      []string
}

// TicketUpdateInput holds a partial update. Nil fields are left untouched.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Labels      *[]string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		strictUpdates: deps.StrictUpdates,
		now:           clock,
	}
}

// ListTickets returns every ticket owned by userID in creation order.
func (s *TicketService) ListTickets(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// GetTicket fetches a ticket ensuring ownership.
func (s *TicketService) GetTicket(ctx context.Context, userID int64, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetForUser(ctx, userID, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	return ticket, nil
}

// CreateTicket creates a ticket for a user. New tickets always start in todo.
// Title and description are stored as sent; whitespace-only values are rejected.
func (s *TicketService) CreateTicket(ctx context.Context, userID int64, input TicketCreateInput) (*domain.Ticket, error) {
	if blank(input.Title) || blank(input.Description) {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	priority := domain.TicketPriorityMedium
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, invalidPriority(*input.Priority)
		}
		priority = *input.Priority
	}

	now := s.timestamp()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Priority:    priority,
		Status:      domain.TicketStatusTodo,
		Labels:      copyLabels(input.Labels),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(userID),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Status:   ticket.Status,
			Labels:   ticket.Labels,
		},
	})
	return ticket, nil
}

// UpdateTicket applies a partial update. Unknown priority or status values
// are ignored unless the service runs with strict updates.
func (s *TicketService) UpdateTicket(ctx context.Context, userID int64, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetForUser(ctx, userID, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}

	oldStatus := ticket.Status
	changed := make([]string, 0, 5)

	if input.Title != nil {
		if blank(*input.Title) {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = *input.Title
		changed = append(changed, "title")
	}
	if input.Description != nil {
		if blank(*input.Description) {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		ticket.Description = *input.Description
		changed = append(changed, "description")
	}
	if input.Priority != nil {
		switch {
		case input.Priority.Valid():
			ticket.Priority = *input.Priority
			changed = append(changed, "priority")
		case s.strictUpdates:
			return nil, invalidPriority(*input.Priority)
		}
	}
	if input.Status != nil {
		switch {
		case input.Status.Valid():
			ticket.Status = *input.Status
			changed = append(changed, "status")
		case s.strictUpdates:
			return nil, apperrors.NewValidationError("status must be todo, in-progress, or done",
				map[string]any{"status": string(*input.Status)})
		}
	}
	if input.Labels != nil {
		ticket.Labels = copyLabels(*input.Labels)
		changed = append(changed, "labels")
	}

	ticket.UpdatedAt = s.advance(ticket.UpdatedAt)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}

	payload := events.TicketUpdatedPayload{Changed: changed}
	if ticket.Status != oldStatus {
		payload.OldStatus = oldStatus
		payload.NewStatus = ticket.Status
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    userActor(userID),
		Payload:  payload,
	})
	return ticket, nil
}

// DeleteTicket permanently removes a ticket owned by userID.
func (s *TicketService) DeleteTicket(ctx context.Context, userID int64, ticketID string) error {
	if err := s.tickets.DeleteForUser(ctx, userID, ticketID); err != nil {
		return mapTicketErr(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    userActor(userID),
	})
	return nil
}

func (s *TicketService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// advance returns the current time, nudged forward so updated_at never
// stands still or moves backwards.
func (s *TicketService) advance(previous time.Time) time.Time {
	now := s.timestamp()
	if !now.After(previous) {
		return previous.Add(time.Microsecond)
	}
	return now
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.timestamp()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("ticket event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func userActor(userID int64) events.Actor {
	return events.Actor{UserID: userID}
}

func mapTicketErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.NewInternalError(err)
}

func invalidPriority(p domain.TicketPriority) error {
	return apperrors.NewValidationError("priority must be low, medium, or high",
		map[string]any{"priority": string(p)})
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func copyLabels(labels []string) []string {
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}
