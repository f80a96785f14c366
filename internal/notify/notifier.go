// Package notify carries best-effort notifications out of the request path.
// Producers publish domain events to durable RabbitMQ queues after the
// state mutation has committed; a background consumer drains the queues and
// delivers email.  Publish failures are logged by callers and never fail
// the operation that triggered them.
package notify

import "context"

// Queue names shared by publisher and consumer.
const (
	QueueTicketConfirmed = "ticket.confirmed"
	QueueEventCancelled  = "event.cancelled"
)

// TicketConfirmedEvent is published after a registration commits.  It
// carries everything the mail worker needs so it never queries the
// primary database.
type TicketConfirmedEvent struct {
	TicketCode    string `json:"ticket_code"`
	QRCode        string `json:"qr_code"`
	EventTitle    string `json:"event_title"`
	EventLocation string `json:"event_location"`
	StartDate     string `json:"start_date"`
	AttendeeEmail string `json:"attendee_email"`
	AttendeeName  string `json:"attendee_name"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// EventCancelledEvent is published after an organizer cancels an event
// that already has registrations.
type EventCancelledEvent struct {
	EventTitle  string   `json:"event_title"`
	Location    string   `json:"location"`
	StartDate   string   `json:"start_date"`
	Emails      []string `json:"emails"`
	CancelledAt string   `json:"cancelled_at"`
}

// Notifier is the seam between the services and the broker.  Both methods
// are fire-and-forget from the caller's perspective: the returned error is
// for logging only.
type Notifier interface {
	TicketConfirmed(ctx context.Context, ev TicketConfirmedEvent) error
	EventCancelled(ctx context.Context, ev EventCancelledEvent) error
}
