package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/notify"
)

// EventService owns the event lifecycle: creation, edits with the
// post-registration freeze, soft cancellation and the notifications that
// follow it.
type EventService struct {
	events   EventStore
	tickets  TicketStore
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewEventService(events EventStore, tickets TicketStore, notifier notify.Notifier, log *zap.Logger) *EventService {
	return &EventService{
		events:   events,
		tickets:  tickets,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Create validates and stores a new event owned by organizerID.  New
// events open for registration immediately.
func (s *EventService) Create(ctx context.Context, organizerID uint64, req model.CreateEventRequest) (*model.Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validationf("title is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, apperr.Validationf("location is required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, apperr.Validationf("startDate and endDate are required")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, apperr.Validationf("endDate must be after startDate")
	}
	if req.Capacity < 1 {
		return nil, apperr.Validationf("capacity must be at least 1")
	}

	e := &model.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		Capacity:    req.Capacity,
		IsActive:    true,
		ImageURL:    req.ImageURL,
		OrganizerID: organizerID,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("event created",
		zap.Uint64("event_id", e.ID),
		zap.Uint64("organizer_id", organizerID),
		zap.Int("capacity", e.Capacity))
	return e, nil
}

func (s *EventService) Get(ctx context.Context, id uint64) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *EventService) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	return s.events.List(ctx, f)
}

// Update applies a partial edit.  Date and location changes are rejected
// once the first ticket exists; capacity can grow freely but can never
// shrink below the current registered count.
func (s *EventService) Update(ctx context.Context, actor *model.User, id uint64, req model.UpdateEventRequest) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, e); err != nil {
		return nil, err
	}
	if e.CancelledAt != nil {
		return nil, apperr.BusinessRulef("cannot edit a cancelled event")
	}
	if req.TouchesFrozenFields() && e.HasRegistrations() {
		return nil, apperr.Conflictf("dates and location cannot be changed after registrations exist")
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperr.Validationf("title cannot be empty")
		}
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Location != nil {
		if strings.TrimSpace(*req.Location) == "" {
			return nil, apperr.Validationf("location cannot be empty")
		}
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.StartDate != nil {
		e.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		e.EndDate = req.EndDate.UTC()
	}
	if !e.EndDate.After(e.StartDate) {
		return nil, apperr.Validationf("endDate must be after startDate")
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return nil, apperr.Validationf("capacity must be at least 1")
		}
		if *req.Capacity < e.RegisteredCount {
			return nil, apperr.BusinessRulef("capacity cannot be reduced below the current number of registrations")
		}
		e.Capacity = *req.Capacity
	}
	if req.ImageURL.Set {
		e.ImageURL = req.ImageURL.Value
	}

	if err := s.events.UpdateEditable(ctx, e); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, id)
}

// Delete hard-deletes an event that never issued a ticket.  Events with
// registrations must be cancelled instead so attendees get notified.
func (s *EventService) Delete(ctx context.Context, actor *model.User, id uint64) error {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, e); err != nil {
		return err
	}
	if e.HasRegistrations() {
		return apperr.Conflictf("event has registrations; cancel it instead of deleting")
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("event deleted", zap.Uint64("event_id", id), zap.Uint64("actor_id", actor.ID))
	return nil
}

// Cancel soft-cancels an event: registration closes immediately, confirmed
// attendees are notified, and the cleanup sweeper deletes the rows once
// the grace period passes.
func (s *EventService) Cancel(ctx context.Context, actor *model.User, id uint64) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, e); err != nil {
		return nil, err
	}

	emails, err := s.tickets.ConfirmedEmails(ctx, id)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.events.MarkCancelled(ctx, id, at); err != nil {
		return nil, err
	}
	s.log.Info("event cancelled",
		zap.Uint64("event_id", id),
		zap.Uint64("actor_id", actor.ID),
		zap.Int("attendees", len(emails)))

	// Best effort from here: the cancellation is committed.
	if len(emails) > 0 {
		notice := notify.EventCancelledEvent{
			EventTitle:  e.Title,
			Location:    e.Location,
			StartDate:   e.StartDate.Format(time.RFC3339),
			Emails:      emails,
			CancelledAt: at.Format(time.RFC3339),
		}
		if err := s.notifier.EventCancelled(ctx, notice); err != nil {
			s.log.Warn("cancellation notice publish failed",
				zap.Uint64("event_id", id), zap.Error(err))
		}
	}

	return s.events.GetByID(ctx, id)
}

// authorize allows admins and the owning organizer.
func (s *EventService) authorize(actor *model.User, e *model.Event) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if actor.Role == model.RoleOrganizer && actor.ID == e.OrganizerID {
		return nil
	}
	return apperr.Forbiddenf("you do not have permission to manage this event")
}
