package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/notify"
	"github.com/gatepass/gatepass/internal/qr"
)

// TicketService issues, verifies and cancels tickets.  Issuance delegates
// the capacity-critical section to the store; this layer generates the
// ticket code and QR image, retries a lost insert race once, and publishes
// the confirmation after the store has committed.
type TicketService struct {
	tickets  TicketStore
	events   EventStore
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewTicketService(tickets TicketStore, events EventStore, notifier notify.Notifier, log *zap.Logger) *TicketService {
	return &TicketService{
		tickets:  tickets,
		events:   events,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// newTicketCode returns a fresh human-facing ticket identifier.
func newTicketCode() string {
	return "TICKET-" + strings.ToUpper(uuid.New().String()[:8])
}

// Register issues a CONFIRMED ticket for the attendee on the given event.
// Conflicts reported by the store are race artifacts (a code collision or
// a duplicate that slipped past the pre-check), so the whole attempt is
// retried once with a fresh code before giving up.
func (s *TicketService) Register(ctx context.Context, attendee *model.User, eventID uint64) (*model.TicketDetail, error) {
	if eventID == 0 {
		return nil, apperr.Validationf("eventId is required")
	}

	var t *model.Ticket
	for attempt := 0; ; attempt++ {
		code := newTicketCode()
		qrImage, err := qr.EncodeTicket(model.QRPayload{
			TicketID:   code,
			EventID:    eventID,
			AttendeeID: attendee.ID,
		})
		if err != nil {
			return nil, apperr.Transient("render ticket qr", err)
		}

		t = &model.Ticket{
			Code:       code,
			QRCode:     qrImage,
			EventID:    eventID,
			AttendeeID: attendee.ID,
		}
		err = s.tickets.RegisterConfirmed(ctx, t)
		if err == nil {
			break
		}
		if apperr.IsKind(err, apperr.KindConflict) && attempt == 0 {
			s.log.Warn("registration conflict, retrying once",
				zap.Uint64("event_id", eventID),
				zap.Uint64("attendee_id", attendee.ID),
				zap.Error(err))
			continue
		}
		return nil, err
	}

	s.log.Info("ticket issued",
		zap.String("ticket", t.Code),
		zap.Uint64("event_id", eventID),
		zap.Uint64("attendee_id", attendee.ID))

	detail, err := s.tickets.GetDetailByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	// Committed; notification is best effort.
	if detail.Event != nil {
		notice := notify.TicketConfirmedEvent{
			TicketCode:    t.Code,
			QRCode:        t.QRCode,
			EventTitle:    detail.Event.Title,
			EventLocation: detail.Event.Location,
			StartDate:     detail.Event.StartDate.Format(time.RFC3339),
			AttendeeEmail: attendee.Email,
			AttendeeName:  attendee.Name,
			ConfirmedAt:   s.now().UTC().Format(time.RFC3339),
		}
		if err := s.notifier.TicketConfirmed(ctx, notice); err != nil {
			s.log.Warn("confirmation publish failed",
				zap.String("ticket", t.Code), zap.Error(err))
		}
	}
	return detail, nil
}

// Verify checks a ticket in by its code.  Only staff call this; the
// handler enforces the role.  A second verification of the same ticket is
// an error, not a no-op, so gate staff see double scans.
func (s *TicketService) Verify(ctx context.Context, code string) (*model.TicketDetail, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validationf("ticket code is required")
	}
	detail, err := s.tickets.CheckInByCode(ctx, code, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.log.Info("ticket checked in",
		zap.String("ticket", detail.Code),
		zap.Uint64("event_id", detail.EventID))
	return detail, nil
}

// Cancel releases the attendee's own ticket and frees the seat.
func (s *TicketService) Cancel(ctx context.Context, attendee *model.User, ticketID uint64) (*model.TicketDetail, error) {
	detail, err := s.tickets.CancelOwned(ctx, ticketID, attendee.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("ticket cancelled",
		zap.String("ticket", detail.Code),
		zap.Uint64("event_id", detail.EventID),
		zap.Uint64("attendee_id", attendee.ID))
	return detail, nil
}

// Get returns one ticket.  Attendees may only read their own tickets;
// staff may read any.
func (s *TicketService) Get(ctx context.Context, actor *model.User, ticketID uint64) (*model.TicketDetail, error) {
	detail, err := s.tickets.GetDetailByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleAttendee && detail.AttendeeID != actor.ID {
		return nil, apperr.Forbiddenf("you can only view your own tickets")
	}
	return detail, nil
}

// List applies the caller's visibility: attendees are always scoped to
// their own tickets regardless of the requested filter.
func (s *TicketService) List(ctx context.Context, actor *model.User, f model.TicketFilter) ([]model.TicketDetail, error) {
	if actor.Role == model.RoleAttendee {
		f.AttendeeID = actor.ID
	}
	if f.Status != "" && !f.Status.IsValid() {
		return nil, apperr.Validationf("invalid ticket status %q", f.Status)
	}
	return s.tickets.List(ctx, f)
}

// ListMine returns the caller's tickets across all events.
func (s *TicketService) ListMine(ctx context.Context, actor *model.User) ([]model.TicketDetail, error) {
	return s.tickets.List(ctx, model.TicketFilter{AttendeeID: actor.ID})
}
