package domain

import "time"

// TicketStatus is the kanban column a ticket sits in.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "todo"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusDone       TicketStatus = "done"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusTodo, TicketStatusInProgress, TicketStatusDone:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Ticket is a card on a user's board. It belongs to exactly one user.
type Ticket struct {
	ID          string
	UserID      int64
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	Labels      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
