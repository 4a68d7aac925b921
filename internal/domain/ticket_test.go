package domain

import "testing"

func TestTicketPriorityValid(t *testing.T) {
	for _, p := range []TicketPriority{"low", "medium", "high"} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []TicketPriority{"", "LOW", "urgent"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}

func TestTicketStatusValid(t *testing.T) {
	for _, s := range []TicketStatus{"todo", "in-progress", "done"} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []TicketStatus{"", "in_progress", "closed"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
