package model

import "time"

// EventStatus is the derived lifecycle state of an event.  An event is
// ACTIVE until an organizer cancels it, CANCELLED while it awaits the
// cleanup sweep, and purged (row deleted) afterwards.  Purged events have
// no representation here because their rows no longer exist.
type EventStatus string

const (
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event represents a schedulable activity with a finite seat capacity,
// owned by an organizer.  This struct corresponds to a row in the
// `events` table.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – event title.
//  Description     – free-form description.
//  Location        – venue; frozen once the first ticket is issued.
//  StartDate       – when the event begins; frozen once registered.
//  EndDate         – when the event ends; frozen once registered.
//  Capacity        – maximum number of CONFIRMED tickets.
//  RegisteredCount – number of currently CONFIRMED tickets (0..Capacity).
//  IsActive        – whether registration is open.
//  ImageURL        – optional promo image (nil when none).
//  CancelledAt     – set when the event is soft-cancelled (nil otherwise).
//  OrganizerID     – user who owns the event.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Event struct {
	ID              uint64     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	Capacity        int        `json:"capacity"`
	RegisteredCount int        `json:"registeredCount"`
	IsActive        bool       `json:"isActive"`
	ImageURL        *string    `json:"imageUrl,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	OrganizerID     uint64     `json:"organizerId"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Status derives the lifecycle state from the cancellation marker.
func (e *Event) Status() EventStatus {
	if e.CancelledAt != nil {
		return EventStatusCancelled
	}
	return EventStatusActive
}

// Remaining returns the number of free seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull reports whether no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// HasRegistrations reports whether at least one ticket has been issued.
// Date and location edits are rejected once this is true.
func (e *Event) HasRegistrations() bool {
	return e.RegisteredCount > 0
}

// CreateEventRequest is the payload for POST /events.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Capacity    int       `json:"capacity"`
	ImageURL    *string   `json:"imageUrl"`
}

// UpdateEventRequest is the payload for PATCH /events/:id.  Nil pointers
// mean "leave unchanged".  ImageURL is tri-state: absent leaves the image
// alone, an explicit null (or empty string) removes it, a non-empty string
// replaces it.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Capacity    *int       `json:"capacity"`
	ImageURL    OptString  `json:"imageUrl"`
}

// TouchesFrozenFields reports whether the patch tries to change any field
// that becomes immutable after the first registration.
func (r *UpdateEventRequest) TouchesFrozenFields() bool {
	return r.StartDate != nil || r.EndDate != nil || r.Location != nil
}

// EventFilter narrows event listings.  Zero values mean "no filter".
type EventFilter struct {
	Search      string
	OrganizerID uint64
	IsActive    *bool
}
