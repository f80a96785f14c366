// Package service holds the business rules between the HTTP handlers and
// the repositories.  Services depend on small store interfaces rather than
// the concrete repositories so the rules can be tested against an
// in-memory implementation.
package service

import (
	"context"
	"time"

	"github.com/gatepass/gatepass/internal/model"
)

// EventStore is the persistence surface the event service needs.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	UpdateEditable(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id uint64) error
	MarkCancelled(ctx context.Context, id uint64, at time.Time) error
}

// TicketStore is the persistence surface the ticket service needs.  The
// three mutating methods are transactional in the SQL implementation.
type TicketStore interface {
	RegisterConfirmed(ctx context.Context, t *model.Ticket) error
	CheckInByCode(ctx context.Context, code string, now time.Time) (*model.TicketDetail, error)
	CancelOwned(ctx context.Context, ticketID, attendeeID uint64) (*model.TicketDetail, error)
	GetDetailByID(ctx context.Context, id uint64) (*model.TicketDetail, error)
	List(ctx context.Context, f model.TicketFilter) ([]model.TicketDetail, error)
	ConfirmedEmails(ctx context.Context, eventID uint64) ([]string, error)
}
