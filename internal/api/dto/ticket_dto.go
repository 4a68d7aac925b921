package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/kanban-service/internal/domain"
)

// CreateTicketRequest payload. Status is accepted but ignored; new tickets
// always start in todo. An explicit null priority is present but empty.
type CreateTicketRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    OptionalString `json:"priority"`
	Status      *string        `json:"status"`
	Labels      []string       `json:"labels"`
}

// UpdateTicketRequest carries a partial update. Absent fields stay nil.
type UpdateTicketRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Priority    *string        `json:"priority"`
	Status      *string        `json:"status"`
	Labels      OptionalLabels `json:"labels"`
}

// OptionalString distinguishes an absent string field from a present one. A
// JSON null is present with an empty Value.
type OptionalString struct {
	Set   bool
	Value string
}

// UnmarshalJSON marks the field as present, including for null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if isNull(data) {
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// OptionalLabels distinguishes an absent labels field from an explicit null.
type OptionalLabels struct {
	Set    bool
	Values []string
}

// UnmarshalJSON marks the field as present, including for null.
func (o *OptionalLabels) UnmarshalJSON(data []byte) error {
	o.Set = true
	if isNull(data) {
		o.Values = nil
		return nil
	}
	return json.Unmarshal(data, &o.Values)
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// TicketResponse is the wire projection of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Labels      []string              `json:"labels"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// NewTicketResponse projects a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	labels := ticket.Labels
	if labels == nil {
		labels = []string{}
	}
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		Labels:      labels,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}
