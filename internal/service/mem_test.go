package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
	"github.com/gatepass/gatepass/internal/notify"
)

// memStore holds in-memory state shared by the memEvents and memTickets
// views.  One mutex plays the role of the SQL row lock, so the service
// rules can be exercised concurrently without a database.
type memStore struct {
	mu           sync.Mutex
	nextEventID  uint64
	nextTicketID uint64
	events       map[uint64]*model.Event
	tickets      map[uint64]*model.Ticket
	users        map[uint64]*model.User
}

func newMemStore() *memStore {
	return &memStore{
		events:  make(map[uint64]*model.Event),
		tickets: make(map[uint64]*model.Ticket),
		users:   make(map[uint64]*model.User),
	}
}

func (s *memStore) addUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memStore) eventByID(id uint64) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		return copyEvent(e)
	}
	return nil
}

func (s *memStore) detailLocked(id uint64) *model.TicketDetail {
	t := s.tickets[id]
	d := &model.TicketDetail{Ticket: *t}
	if e, ok := s.events[t.EventID]; ok {
		d.Event = copyEvent(e)
	}
	if u, ok := s.users[t.AttendeeID]; ok {
		d.Attendee = u.Public()
	}
	return d
}

func copyEvent(e *model.Event) *model.Event {
	cp := *e
	return &cp
}

// memEvents implements EventStore (plus the sweeper's purge) over memStore.
type memEvents struct{ st *memStore }

func (m *memEvents) Create(_ context.Context, e *model.Event) error {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	e.ID = s.nextEventID
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	s.events[e.ID] = copyEvent(e)
	return nil
}

func (m *memEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.NotFoundf("event not found")
	}
	return copyEvent(e), nil
}

func (m *memEvents) List(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if f.OrganizerID != 0 && e.OrganizerID != f.OrganizerID {
			continue
		}
		if f.IsActive != nil && e.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *copyEvent(e))
	}
	return out, nil
}

func (m *memEvents) UpdateEditable(_ context.Context, e *model.Event) error {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[e.ID]
	if !ok {
		return apperr.NotFoundf("event not found")
	}
	cur.Title = e.Title
	cur.Description = e.Description
	cur.Location = e.Location
	cur.StartDate = e.StartDate
	cur.EndDate = e.EndDate
	cur.Capacity = e.Capacity
	cur.ImageURL = e.ImageURL
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memEvents) Delete(_ context.Context, id uint64) error {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return apperr.NotFoundf("event not found")
	}
	delete(s.events, id)
	return nil
}

func (m *memEvents) MarkCancelled(_ context.Context, id uint64, at time.Time) error {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return apperr.NotFoundf("event not found")
	}
	if e.CancelledAt != nil {
		return apperr.BusinessRulef("event is already cancelled")
	}
	e.CancelledAt = &at
	e.IsActive = false
	return nil
}

func (m *memEvents) PurgeCancelledBefore(_ context.Context, cutoff time.Time) (int, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.events {
		if e.CancelledAt != nil && e.CancelledAt.Before(cutoff) {
			for tid, t := range s.tickets {
				if t.EventID == id {
					delete(s.tickets, tid)
				}
			}
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

// memTickets implements TicketStore over memStore.  RegisterConfirmed
// mirrors the SQL transaction: state checks, capacity check, duplicate
// check, insert and counter increment all under one lock.
type memTickets struct{ st *memStore }

func (m *memTickets) RegisterConfirmed(_ context.Context, t *model.Ticket) error {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[t.EventID]
	if !ok {
		return apperr.NotFoundf("event not found")
	}
	if !e.IsActive || e.CancelledAt != nil {
		return apperr.BusinessRulef("event is not active")
	}
	if e.RegisteredCount >= e.Capacity {
		return apperr.BusinessRulef("event is at full capacity")
	}
	for _, ex := range s.tickets {
		if ex.EventID == t.EventID && ex.AttendeeID == t.AttendeeID && ex.Status == model.TicketStatusConfirmed {
			return apperr.BusinessRulef("already registered for this event")
		}
		if ex.Code == t.Code {
			return apperr.Conflictf("ticket code collision")
		}
	}
	s.nextTicketID++
	t.ID = s.nextTicketID
	t.Status = model.TicketStatusConfirmed
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.tickets[t.ID] = &cp
	e.RegisteredCount++
	return nil
}

func (m *memTickets) CheckInByCode(_ context.Context, code string, now time.Time) (*model.TicketDetail, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.Code != code {
			continue
		}
		switch t.Status {
		case model.TicketStatusCancelled:
			return nil, apperr.BusinessRulef("ticket has been cancelled")
		case model.TicketStatusCheckedIn:
			return nil, apperr.BusinessRulef("ticket has already been checked in")
		}
		t.Status = model.TicketStatusCheckedIn
		t.CheckedInAt = &now
		return s.detailLocked(t.ID), nil
	}
	return nil, apperr.NotFoundf("ticket not found")
}

func (m *memTickets) CancelOwned(_ context.Context, ticketID, attendeeID uint64) (*model.TicketDetail, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, apperr.NotFoundf("ticket not found")
	}
	if t.AttendeeID != attendeeID {
		return nil, apperr.Forbiddenf("you can only cancel your own tickets")
	}
	switch t.Status {
	case model.TicketStatusCheckedIn:
		return nil, apperr.BusinessRulef("cannot cancel a checked-in ticket")
	case model.TicketStatusCancelled:
		return nil, apperr.BusinessRulef("ticket is already cancelled")
	}
	t.Status = model.TicketStatusCancelled
	if e, ok := s.events[t.EventID]; ok && e.RegisteredCount > 0 {
		e.RegisteredCount--
	}
	return s.detailLocked(ticketID), nil
}

func (m *memTickets) GetDetailByID(_ context.Context, id uint64) (*model.TicketDetail, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return nil, apperr.NotFoundf("ticket not found")
	}
	return s.detailLocked(id), nil
}

func (m *memTickets) List(_ context.Context, f model.TicketFilter) ([]model.TicketDetail, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TicketDetail
	for id, t := range s.tickets {
		if f.EventID != 0 && t.EventID != f.EventID {
			continue
		}
		if f.AttendeeID != 0 && t.AttendeeID != f.AttendeeID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, *s.detailLocked(id))
	}
	return out, nil
}

func (m *memTickets) ConfirmedEmails(_ context.Context, eventID uint64) ([]string, error) {
	s := m.st
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, t := range s.tickets {
		if t.EventID == eventID && t.Status == model.TicketStatusConfirmed {
			if u, ok := s.users[t.AttendeeID]; ok {
				out = append(out, u.Email)
			}
		}
	}
	return out, nil
}

// fakeNotifier records published notifications; fail makes every publish
// error so the swallow-and-log contract can be asserted.
type fakeNotifier struct {
	mu        sync.Mutex
	fail      bool
	confirmed []notify.TicketConfirmedEvent
	cancelled []notify.EventCancelledEvent
}

func (f *fakeNotifier) TicketConfirmed(_ context.Context, ev notify.TicketConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return apperr.Transient("broker down", nil)
	}
	f.confirmed = append(f.confirmed, ev)
	return nil
}

func (f *fakeNotifier) EventCancelled(_ context.Context, ev notify.EventCancelledEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return apperr.Transient("broker down", nil)
	}
	f.cancelled = append(f.cancelled, ev)
	return nil
}

func (f *fakeNotifier) confirmedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.confirmed)
}
