package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/kanban-service/internal/domain"
)

type sqliteTicketRepository struct {
	db *sql.DB
}

// NewSQLiteTicketRepository returns a TicketRepository backed by SQLite.
// Labels are kept as a JSON array in a TEXT column.
func NewSQLiteTicketRepository(db *sql.DB) TicketRepository {
	return &sqliteTicketRepository{db: db}
}

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	labels, err := encodeLabels(ticket.Labels)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO tickets (id, user_id, title, description, priority, status, labels, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID,
		ticket.UserID,
		ticket.Title,
		ticket.Description,
		string(ticket.Priority),
		string(ticket.Status),
		labels,
		ticket.CreatedAt.UTC(),
		ticket.UpdatedAt.UTC(),
	)
	return translate(err)
}

func (r *sqliteTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	labels, err := encodeLabels(ticket.Labels)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE tickets SET title=?, description=?, priority=?, status=?, labels=?, updated_at=?
        WHERE id=? AND user_id=?`,
		ticket.Title,
		ticket.Description,
		string(ticket.Priority),
		string(ticket.Status),
		labels,
		ticket.UpdatedAt.UTC(),
		ticket.ID,
		ticket.UserID,
	)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *sqliteTicketRepository) GetForUser(ctx context.Context, userID int64, ticketID string) (*domain.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id=? AND user_id=?`, ticketID, userID)
	ticket, err := scanSQLiteTicket(row)
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *sqliteTicketRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE user_id=? ORDER BY created_at ASC, rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *sqliteTicketRepository) DeleteForUser(ctx context.Context, userID int64, ticketID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id=? AND user_id=?`, ticketID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		priority string
		status   string
		labels   string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Title,
		&ticket.Description,
		&priority,
		&status,
		&labels,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)
	ticket.Labels = decodeLabels(labels)
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	return &ticket, nil
}

func encodeLabels(labels []string) (string, error) {
	raw, err := json.Marshal(nonNilLabels(labels))
	if err != nil {
		return "", fmt.Errorf("encode labels: %w", err)
	}
	return string(raw), nil
}

// decodeLabels treats an unreadable column as no labels.
func decodeLabels(raw string) []string {
	var labels []string
	if raw == "" || json.Unmarshal([]byte(raw), &labels) != nil {
		return []string{}
	}
	return nonNilLabels(labels)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
