package repository

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles the stores handed to services.
type Repositories struct {
	Users   UserRepository
	Tickets TicketRepository
}

// NewPostgresRepositories builds stores over a pgx pool.
func NewPostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:   NewUserRepository(pool),
		Tickets: NewTicketRepository(pool),
	}
}

// NewSQLiteRepositories builds stores over a SQLite handle.
func NewSQLiteRepositories(db *sql.DB) Repositories {
	return Repositories{
		Users:   NewSQLiteUserRepository(db),
		Tickets: NewSQLiteTicketRepository(db),
	}
}
