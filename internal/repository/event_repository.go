package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
)

const eventColumns = "id, title, description, location, start_date, end_date, capacity, registered_count, is_active, image_url, cancelled_at, organizer_id, created_at, updated_at"

// EventRepo handles persistence for events.  The registered_count column is
// only ever written through SQL delta updates inside the ticket
// transactions; the edit path never touches it, so concurrent
// registrations cannot be lost to a stale full-row write.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

// Create inserts a new event and populates the generated ID and timestamps
// on the provided record.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO events (title, description, location, start_date, end_date, capacity, registered_count, is_active, image_url, organizer_id)
		 VALUES (?,?,?,?,?,?,0,1,?,?)`,
		e.Title, e.Description, e.Location, e.StartDate, e.EndDate, e.Capacity, e.ImageURL, e.OrganizerID)
	if err != nil {
		return apperr.Transient("insert event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Transient("insert event", err)
	}
	e.ID = uint64(id)
	created, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

func scanEvent(scan func(dest ...any) error) (*model.Event, error) {
	var e model.Event
	var imageURL sql.NullString
	var cancelledAt sql.NullTime
	err := scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&e.Capacity, &e.RegisteredCount, &e.IsActive, &imageURL, &cancelledAt,
		&e.OrganizerID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		u := imageURL.String
		e.ImageURL = &u
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		e.CancelledAt = &t
	}
	return &e, nil
}

// GetByID returns a single event or a NotFound error.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=?", id)
	e, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("event not found")
		}
		return nil, apperr.Transient("get event", err)
	}
	return e, nil
}

// List returns events matching the filter, soonest start date first.
func (r *EventRepo) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	q := "SELECT " + eventColumns + " FROM events"
	var conds []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "(title LIKE ? OR description LIKE ? OR location LIKE ?)")
		pat := "%" + s + "%"
		args = append(args, pat, pat, pat)
	}
	if f.OrganizerID != 0 {
		conds = append(conds, "organizer_id = ?")
		args = append(args, f.OrganizerID)
	}
	if f.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY start_date ASC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Transient("list events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, apperr.Transient("scan event", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("list events", err)
	}
	return events, nil
}

// UpdateEditable writes back the editable columns of an event.  The
// registered_count, is_active and cancelled_at columns are deliberately
// excluded; they belong to the ticket transactions and the cancel path.
func (r *EventRepo) UpdateEditable(ctx context.Context, e *model.Event) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE events SET title=?, description=?, location=?, start_date=?, end_date=?, capacity=?, image_url=?
		 WHERE id=?`,
		e.Title, e.Description, e.Location, e.StartDate, e.EndDate, e.Capacity, e.ImageURL, e.ID)
	if err != nil {
		return apperr.Transient("update event", err)
	}
	return nil
}

// Delete removes an event row.  Only callable for events without
// registrations; the service enforces that rule.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	if err != nil {
		return apperr.Transient("delete event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("event not found")
	}
	return nil
}

// MarkCancelled soft-cancels an event: stamps cancelled_at and closes
// registration.  The WHERE guard makes a concurrent second cancel lose
// cleanly instead of overwriting the original timestamp.
func (r *EventRepo) MarkCancelled(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE events SET cancelled_at=?, is_active=0 WHERE id=? AND cancelled_at IS NULL",
		at, id)
	if err != nil {
		return apperr.Transient("cancel event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.BusinessRulef("event is already cancelled")
	}
	return nil
}

// PurgeCancelledBefore hard-deletes every event cancelled before the cutoff
// together with its tickets, inside one transaction, and returns how many
// events were purged.
func (r *EventRepo) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Transient("begin purge", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM events WHERE cancelled_at IS NOT NULL AND cancelled_at < ?", cutoff)
	if err != nil {
		return 0, apperr.Transient("select purge candidates", err)
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperr.Transient("scan purge candidate", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperr.Transient("select purge candidates", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	// Tickets are owned by their event: they go first.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM tickets WHERE event_id IN ("+placeholders+")", args...); err != nil {
		return 0, apperr.Transient("purge tickets", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM events WHERE id IN ("+placeholders+")", args...); err != nil {
		return 0, apperr.Transient("purge events", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Transient("commit purge", err)
	}
	committed = true
	return len(ids), nil
}
