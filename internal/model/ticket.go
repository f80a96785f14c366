package model

import "time"

// TicketStatus enumerates the ticket state machine:
//
//	PENDING --(issue succeeds)--> CONFIRMED
//	CONFIRMED --(check-in)--> CHECKED_IN   [terminal]
//	CONFIRMED --(cancel by owner)--> CANCELLED   [terminal]
//
// PENDING is reserved for a pre-confirmation flow that does not exist yet;
// tickets are created directly as CONFIRMED.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusConfirmed TicketStatus = "CONFIRMED"
	TicketStatusCheckedIn TicketStatus = "CHECKED_IN"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// IsValid reports whether the status is one of the known enum values.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusPending, TicketStatusConfirmed, TicketStatusCheckedIn, TicketStatusCancelled:
		return true
	}
	return false
}

// Ticket is the proof of a successful registration, bound to one event and
// one attendee.  Code is the human-facing identifier printed on the ticket
// and embedded in the QR payload; QRCode holds the rendered image as a
// data URL.  This struct corresponds to a row in the `tickets` table.
type Ticket struct {
	ID          uint64       `json:"id"`
	Code        string       `json:"ticketId"`
	QRCode      string       `json:"qrCode"`
	Status      TicketStatus `json:"status"`
	EventID     uint64       `json:"eventId"`
	AttendeeID  uint64       `json:"attendeeId"`
	CheckedInAt *time.Time   `json:"checkedInAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TicketDetail is a ticket expanded with its event and attendee, as
// returned by the read endpoints.
type TicketDetail struct {
	Ticket
	Event    *Event      `json:"event,omitempty"`
	Attendee *PublicUser `json:"attendee,omitempty"`
}

// RegisterForEventRequest is the payload for POST /tickets/register.
type RegisterForEventRequest struct {
	EventID uint64 `json:"eventId"`
}

// TicketFilter narrows ticket listings.  Zero values mean "no filter".
type TicketFilter struct {
	EventID    uint64
	AttendeeID uint64
	Status     TicketStatus
}

// QRPayload is the verification payload encoded into the scannable image.
// The JSON field names are part of the wire contract with the scanner
// clients and must not change.
type QRPayload struct {
	TicketID   string `json:"ticketId"`
	EventID    uint64 `json:"eventId"`
	AttendeeID uint64 `json:"attendeeId"`
}
