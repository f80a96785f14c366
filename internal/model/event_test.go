package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventStatusDerivation(t *testing.T) {
	e := Event{Capacity: 10}
	assert.Equal(t, EventStatusActive, e.Status())

	at := time.Now().UTC()
	e.CancelledAt = &at
	assert.Equal(t, EventStatusCancelled, e.Status())
}

func TestEventCapacityHelpers(t *testing.T) {
	e := Event{Capacity: 2}
	assert.Equal(t, 2, e.Remaining())
	assert.False(t, e.IsFull())
	assert.False(t, e.HasRegistrations())

	e.RegisteredCount = 1
	assert.Equal(t, 1, e.Remaining())
	assert.True(t, e.HasRegistrations())

	e.RegisteredCount = 2
	assert.True(t, e.IsFull())
	assert.Equal(t, 0, e.Remaining())
}

func TestTicketStatusIsValid(t *testing.T) {
	for _, s := range []TicketStatus{TicketStatusPending, TicketStatusConfirmed, TicketStatusCheckedIn, TicketStatusCancelled} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, TicketStatus("EXPIRED").IsValid())
	assert.False(t, TicketStatus("").IsValid())
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.True(t, RoleOrganizer.IsValid())
	assert.True(t, RoleAttendee.IsValid())
	assert.False(t, Role("OWNER").IsValid())
}
