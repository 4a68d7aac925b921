package service

import (
	"context"
	"sync"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/repository"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  []domain.User
	// createErr, when set, is returned by Create.
	createErr error
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByUsernameOrEmail(_ context.Context, identifier string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == identifier || u.Email == identifier })
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	err     error
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Labels = append([]string{}, t.Labels...)
	return t
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tickets = append(r.tickets, cloneTicket(*ticket))
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tickets {
		if t.ID == ticket.ID && t.UserID == ticket.UserID {
			r.tickets[i] = cloneTicket(*ticket)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeTicketRepo) GetForUser(_ context.Context, userID int64, ticketID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, t := range r.tickets {
		if t.ID == ticketID && t.UserID == userID {
			found := cloneTicket(t)
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTicketRepo) ListByUser(_ context.Context, userID int64) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			out = append(out, cloneTicket(t))
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) DeleteForUser(_ context.Context, userID int64, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tickets {
		if t.ID == ticketID && t.UserID == userID {
			r.tickets = append(r.tickets[:i], r.tickets[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return nil
}
