package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatepass/gatepass/internal/apperr"
	"github.com/gatepass/gatepass/internal/model"
)

func newTestServices(t *testing.T) (*EventService, *TicketService, *memStore, *fakeNotifier) {
	t.Helper()
	st := newMemStore()
	events := &memEvents{st: st}
	tickets := &memTickets{st: st}
	n := &fakeNotifier{}
	log := zap.NewNop()
	return NewEventService(events, tickets, n, log), NewTicketService(tickets, events, n, log), st, n
}

func seedEvent(t *testing.T, svc *EventService, organizerID uint64, capacity int) *model.Event {
	t.Helper()
	start := time.Now().UTC().Add(24 * time.Hour)
	e, err := svc.Create(context.Background(), organizerID, model.CreateEventRequest{
		Title:     "Go Conference",
		Location:  "Main Hall",
		StartDate: start,
		EndDate:   start.Add(8 * time.Hour),
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return e
}

func seedAttendee(st *memStore, id uint64) *model.User {
	u := &model.User{
		ID:       id,
		Email:    fmt.Sprintf("attendee%d@example.com", id),
		Name:     fmt.Sprintf("Attendee %d", id),
		Role:     model.RoleAttendee,
		IsActive: true,
	}
	st.addUser(u)
	return u
}

func TestRegisterIssuesConfirmedTicket(t *testing.T) {
	evSvc, tkSvc, st, n := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	u := seedAttendee(st, 10)

	detail, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)

	assert.Equal(t, model.TicketStatusConfirmed, detail.Status)
	assert.Contains(t, detail.Code, "TICKET-")
	assert.Contains(t, detail.QRCode, "data:image/png;base64,")
	require.NotNil(t, detail.Event)
	assert.Equal(t, 1, detail.Event.RegisteredCount)
	assert.Equal(t, 1, n.confirmedCount())
}

func TestRegisterDuplicateRejected(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	u := seedAttendee(st, 10)

	_, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)

	_, err = tkSvc.Register(context.Background(), u, e.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
	assert.Equal(t, 1, st.eventByID(e.ID).RegisteredCount)
}

func TestRegisterUnknownEvent(t *testing.T) {
	_, tkSvc, st, _ := newTestServices(t)
	u := seedAttendee(st, 10)

	_, err := tkSvc.Register(context.Background(), u, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRegisterClosedAfterCancel(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	u := seedAttendee(st, 10)
	admin := &model.User{ID: 1, Role: model.RoleAdmin}

	_, err := evSvc.Cancel(context.Background(), admin, e.ID)
	require.NoError(t, err)

	_, err = tkSvc.Register(context.Background(), u, e.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
}

// Capacity is the core invariant: with capacity C and C+k concurrent
// registrations from distinct attendees, exactly C succeed and the
// counter lands exactly on C.
func TestRegisterConcurrentCapacity(t *testing.T) {
	const capacity = 10
	const contenders = 15

	evSvc, tkSvc, st, n := newTestServices(t)
	e := seedEvent(t, evSvc, 1, capacity)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		u := seedAttendee(st, uint64(100+i))
		wg.Add(1)
		go func(i int, u *model.User) {
			defer wg.Done()
			_, errs[i] = tkSvc.Register(context.Background(), u, e.ID)
		}(i, u)
	}
	wg.Wait()

	succeeded, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.IsKind(err, apperr.KindBusinessRule):
			full++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, contenders-capacity, full)
	assert.Equal(t, capacity, st.eventByID(e.ID).RegisteredCount)
	assert.Equal(t, capacity, n.confirmedCount())
}

func TestCancelTicketFreesSeatAndAllowsReregistration(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 1)
	u := seedAttendee(st, 10)

	detail, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.eventByID(e.ID).RegisteredCount)

	cancelled, err := tkSvc.Cancel(context.Background(), u, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusCancelled, cancelled.Status)
	assert.Equal(t, 0, st.eventByID(e.ID).RegisteredCount)

	// The seat is free again and the duplicate rule only counts
	// CONFIRMED tickets, so the same attendee may come back.
	again, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, detail.ID, again.ID)
	assert.Equal(t, 1, st.eventByID(e.ID).RegisteredCount)
}

func TestCancelTicketOwnershipAndStates(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	owner := seedAttendee(st, 10)
	other := seedAttendee(st, 11)

	detail, err := tkSvc.Register(context.Background(), owner, e.ID)
	require.NoError(t, err)

	_, err = tkSvc.Cancel(context.Background(), other, detail.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	_, err = tkSvc.Verify(context.Background(), detail.Code)
	require.NoError(t, err)

	_, err = tkSvc.Cancel(context.Background(), owner, detail.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
}

func TestVerifyIsNotIdempotent(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	u := seedAttendee(st, 10)

	detail, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)

	checked, err := tkSvc.Verify(context.Background(), detail.Code)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusCheckedIn, checked.Status)
	require.NotNil(t, checked.CheckedInAt)

	_, err = tkSvc.Verify(context.Background(), detail.Code)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
}

func TestVerifyCancelledTicketRejected(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	u := seedAttendee(st, 10)

	detail, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)
	_, err = tkSvc.Cancel(context.Background(), u, detail.ID)
	require.NoError(t, err)

	_, err = tkSvc.Verify(context.Background(), detail.Code)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
}

func TestVerifyUnknownCode(t *testing.T) {
	_, tkSvc, _, _ := newTestServices(t)
	_, err := tkSvc.Verify(context.Background(), "TICKET-NOPE1234")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRegisterSucceedsWhenNotifierDown(t *testing.T) {
	evSvc, tkSvc, st, n := newTestServices(t)
	n.fail = true
	e := seedEvent(t, evSvc, 1, 5)
	u := seedAttendee(st, 10)

	detail, err := tkSvc.Register(context.Background(), u, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusConfirmed, detail.Status)
	assert.Equal(t, 1, st.eventByID(e.ID).RegisteredCount)
}

func TestListScopesAttendeesToOwnTickets(t *testing.T) {
	evSvc, tkSvc, st, _ := newTestServices(t)
	e := seedEvent(t, evSvc, 1, 5)
	a := seedAttendee(st, 10)
	b := seedAttendee(st, 11)

	_, err := tkSvc.Register(context.Background(), a, e.ID)
	require.NoError(t, err)
	_, err = tkSvc.Register(context.Background(), b, e.ID)
	require.NoError(t, err)

	// An attendee asking for someone else's tickets still only gets
	// their own.
	got, err := tkSvc.List(context.Background(), a, model.TicketFilter{AttendeeID: b.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].AttendeeID)

	admin := &model.User{ID: 1, Role: model.RoleAdmin}
	all, err := tkSvc.List(context.Background(), admin, model.TicketFilter{EventID: e.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
