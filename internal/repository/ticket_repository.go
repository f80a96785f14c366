package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
)

// TicketRepo handles persistence for tickets, including the three
// transactions that carry the capacity invariant: registration, check-in
// and cancellation.
//
// Registration is the critical section.  Two concurrent attempts for the
// last seat must not both succeed, so the transaction first takes an
// exclusive row lock on the event (SELECT ... FOR UPDATE) and re-validates
// the capacity and duplicate rules under that lock.  Any competing
// transaction blocks on the same lock until this one commits or rolls
// back, which serialises bookings per event.  As a second line of defence
// the uq_tickets_confirmed unique index rejects a duplicate CONFIRMED
// ticket even if an application bug ever bypassed the lock.
type TicketRepo struct{ DB *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{DB: db} }

// RegisterConfirmed atomically checks the event's state, inserts the
// ticket as CONFIRMED and increments the event's registered_count.  The
// provided ticket must carry Code, QRCode, EventID and AttendeeID; its ID
// is populated on success.
func (r *TicketRepo) RegisterConfirmed(ctx context.Context, t *model.Ticket) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Transient("begin registration", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the event row.  Everything below happens under this lock.
	var (
		capacity    int
		registered  int
		isActive    bool
		cancelledAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT capacity, registered_count, is_active, cancelled_at
		 FROM events WHERE id = ? FOR UPDATE`,
		t.EventID,
	).Scan(&capacity, &registered, &isActive, &cancelledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("event not found")
		}
		return apperr.Transient("lock event row", err)
	}

	if !isActive || cancelledAt.Valid {
		return apperr.BusinessRulef("event is not active")
	}
	if registered >= capacity {
		return apperr.BusinessRulef("event is at full capacity")
	}

	var dup int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = ? AND attendee_id = ? AND status = ?`,
		t.EventID, t.AttendeeID, string(model.TicketStatusConfirmed),
	).Scan(&dup)
	if err != nil {
		return apperr.Transient("check duplicate registration", err)
	}
	if dup > 0 {
		return apperr.BusinessRulef("already registered for this event")
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (code, qr_code, status, event_id, attendee_id) VALUES (?,?,?,?,?)`,
		t.Code, t.QRCode, string(model.TicketStatusConfirmed), t.EventID, t.AttendeeID)
	if err != nil {
		// Unique-key hits here are race artifacts: retry the whole
		// registration once (a fresh code fixes a code collision; the
		// duplicate index means someone else just won).
		if duplicateKey(err, "uq_tickets_code") {
			return apperr.Conflictf("ticket code collision")
		}
		if duplicateKey(err, "uq_tickets_confirmed") {
			return apperr.Conflictf("already registered for this event")
		}
		return apperr.Transient("insert ticket", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Transient("insert ticket", err)
	}

	// Counter moves as a SQL delta, never a read-modify-write.
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET registered_count = registered_count + 1 WHERE id = ?`,
		t.EventID); err != nil {
		return apperr.Transient("increment registered count", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Transient("commit registration", err)
	}
	committed = true
	t.ID = uint64(id)
	t.Status = model.TicketStatusConfirmed
	return nil
}

// CheckInByCode transitions a ticket to CHECKED_IN by its human-facing
// code.  The row lock makes two concurrent scans of the same ticket
// serialise, so exactly one succeeds; the second fails with "already
// checked in".  Double check-in is an explicit error, never a no-op.
func (r *TicketRepo) CheckInByCode(ctx context.Context, code string, now time.Time) (*model.TicketDetail, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Transient("begin check-in", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var id uint64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT id, status FROM tickets WHERE code = ? FOR UPDATE`, code,
	).Scan(&id, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("ticket not found")
		}
		return nil, apperr.Transient("lock ticket row", err)
	}
	switch model.TicketStatus(status) {
	case model.TicketStatusCancelled:
		return nil, apperr.BusinessRulef("ticket has been cancelled")
	case model.TicketStatusCheckedIn:
		return nil, apperr.BusinessRulef("ticket has already been checked in")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ?, checked_in_at = ? WHERE id = ?`,
		string(model.TicketStatusCheckedIn), now, id); err != nil {
		return nil, apperr.Transient("update ticket status", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Transient("commit check-in", err)
	}
	committed = true
	return r.GetDetailByID(ctx, id)
}

// CancelOwned transitions a CONFIRMED ticket to CANCELLED and frees its
// seat.  Ownership and state are validated under the row lock; the
// decrement runs in the same transaction so the counter can never drift
// from the ticket state.
func (r *TicketRepo) CancelOwned(ctx context.Context, ticketID, attendeeID uint64) (*model.TicketDetail, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Transient("begin cancel", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var eventID, owner uint64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT event_id, attendee_id, status FROM tickets WHERE id = ? FOR UPDATE`, ticketID,
	).Scan(&eventID, &owner, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("ticket not found")
		}
		return nil, apperr.Transient("lock ticket row", err)
	}
	if owner != attendeeID {
		return nil, apperr.Forbiddenf("you can only cancel your own tickets")
	}
	switch model.TicketStatus(status) {
	case model.TicketStatusCheckedIn:
		return nil, apperr.BusinessRulef("cannot cancel a checked-in ticket")
	case model.TicketStatusCancelled:
		return nil, apperr.BusinessRulef("ticket is already cancelled")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ? WHERE id = ?`,
		string(model.TicketStatusCancelled), ticketID); err != nil {
		return nil, apperr.Transient("update ticket status", err)
	}
	// Guarded so the counter can never go negative even if the ticket and
	// event rows ever disagree.
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET registered_count = registered_count - 1 WHERE id = ? AND registered_count > 0`,
		eventID); err != nil {
		return nil, apperr.Transient("decrement registered count", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Transient("commit cancel", err)
	}
	committed = true
	return r.GetDetailByID(ctx, ticketID)
}

const ticketDetailQuery = `
	SELECT t.id, t.code, t.qr_code, t.status, t.event_id, t.attendee_id, t.checked_in_at, t.created_at, t.updated_at,
	       e.id, e.title, e.description, e.location, e.start_date, e.end_date, e.capacity, e.registered_count,
	       e.is_active, e.image_url, e.cancelled_at, e.organizer_id, e.created_at, e.updated_at,
	       u.id, u.email, u.name, u.company, u.role, u.is_active
	FROM tickets t
	JOIN events e ON e.id = t.event_id
	JOIN users u ON u.id = t.attendee_id`

func scanTicketDetail(scan func(dest ...any) error) (*model.TicketDetail, error) {
	var d model.TicketDetail
	var status string
	var checkedInAt sql.NullTime
	var e model.Event
	var imageURL sql.NullString
	var cancelledAt sql.NullTime
	var u model.PublicUser
	var company sql.NullString
	var role string
	err := scan(
		&d.ID, &d.Code, &d.QRCode, &status, &d.EventID, &d.AttendeeID, &checkedInAt, &d.CreatedAt, &d.UpdatedAt,
		&e.ID, &e.Title, &e.Description, &e.Location, &e.StartDate, &e.EndDate, &e.Capacity, &e.RegisteredCount,
		&e.IsActive, &imageURL, &cancelledAt, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt,
		&u.ID, &u.Email, &u.Name, &company, &role, &u.IsActive,
	)
	if err != nil {
		return nil, err
	}
	d.Status = model.TicketStatus(status)
	if checkedInAt.Valid {
		t := checkedInAt.Time
		d.CheckedInAt = &t
	}
	if imageURL.Valid {
		s := imageURL.String
		e.ImageURL = &s
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		e.CancelledAt = &t
	}
	if company.Valid {
		s := company.String
		u.Company = &s
	}
	u.Role = model.Role(role)
	d.Event = &e
	d.Attendee = &u
	return &d, nil
}

// GetDetailByID returns a ticket expanded with its event and attendee.
func (r *TicketRepo) GetDetailByID(ctx context.Context, id uint64) (*model.TicketDetail, error) {
	row := r.DB.QueryRowContext(ctx, ticketDetailQuery+" WHERE t.id = ?", id)
	d, err := scanTicketDetail(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("ticket not found")
		}
		return nil, apperr.Transient("get ticket", err)
	}
	return d, nil
}

// GetDetailByCode returns a ticket by its human-facing code.
func (r *TicketRepo) GetDetailByCode(ctx context.Context, code string) (*model.TicketDetail, error) {
	row := r.DB.QueryRowContext(ctx, ticketDetailQuery+" WHERE t.code = ?", code)
	d, err := scanTicketDetail(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("ticket not found")
		}
		return nil, apperr.Transient("get ticket", err)
	}
	return d, nil
}

// List returns ticket details matching the filter, newest first.
func (r *TicketRepo) List(ctx context.Context, f model.TicketFilter) ([]model.TicketDetail, error) {
	q := ticketDetailQuery
	var conds []string
	var args []any
	if f.EventID != 0 {
		conds = append(conds, "t.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.AttendeeID != 0 {
		conds = append(conds, "t.attendee_id = ?")
		args = append(args, f.AttendeeID)
	}
	if f.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, string(f.Status))
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY t.created_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Transient("list tickets", err)
	}
	defer rows.Close()

	var details []model.TicketDetail
	for rows.Next() {
		d, err := scanTicketDetail(rows.Scan)
		if err != nil {
			return nil, apperr.Transient("scan ticket", err)
		}
		details = append(details, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list tickets", err)
	}
	return details, nil
}

// ConfirmedEmails returns the addresses of every attendee holding a
// CONFIRMED ticket for the event, for cancellation notices.
func (r *TicketRepo) ConfirmedEmails(ctx context.Context, eventID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT u.email
		 FROM tickets t JOIN users u ON u.id = t.attendee_id
		 WHERE t.event_id = ? AND t.status = ?`,
		eventID, string(model.TicketStatusConfirmed))
	if err != nil {
		return nil, apperr.Transient("list attendee emails", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, apperr.Transient("scan attendee email", err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list attendee emails", err)
	}
	return emails, nil
}
