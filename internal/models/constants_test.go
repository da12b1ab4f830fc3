package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionOrder(t *testing.T) {
	assert.True(t, CanTransitionOrder(OrderStatusPending, OrderStatusPaid))
	assert.True(t, CanTransitionOrder(OrderStatusPending, OrderStatusCancelled))
	assert.True(t, CanTransitionOrder(OrderStatusPaid, OrderStatusCompleted))
	assert.True(t, CanTransitionOrder(OrderStatusPaid, OrderStatusRefunded))
	assert.True(t, CanTransitionOrder(OrderStatusInProgress, OrderStatusRefunded))

	// Терминальные статусы не покидаются.
	assert.False(t, CanTransitionOrder(OrderStatusCompleted, OrderStatusRefunded))
	assert.False(t, CanTransitionOrder(OrderStatusCancelled, OrderStatusPaid))
	assert.False(t, CanTransitionOrder(OrderStatusRefunded, OrderStatusPaid))

	// Назад пути нет.
	assert.False(t, CanTransitionOrder(OrderStatusPaid, OrderStatusPending))
	assert.False(t, CanTransitionOrder(OrderStatusCompleted, OrderStatusPending))
}

func TestCanTransitionProject(t *testing.T) {
	assert.True(t, CanTransitionProject(ProjectStatusOpen, ProjectStatusInProgress))
	assert.True(t, CanTransitionProject(ProjectStatusOpen, ProjectStatusCancelled))
	assert.True(t, CanTransitionProject(ProjectStatusInProgress, ProjectStatusCompleted))

	assert.False(t, CanTransitionProject(ProjectStatusInProgress, ProjectStatusOpen))
	assert.False(t, CanTransitionProject(ProjectStatusCompleted, ProjectStatusOpen))
	assert.False(t, CanTransitionProject(ProjectStatusCancelled, ProjectStatusInProgress))
}

func TestCanTransitionHeld(t *testing.T) {
	assert.True(t, CanTransitionHeld(HeldStatusPending, HeldStatusHeld))
	assert.True(t, CanTransitionHeld(HeldStatusHeld, HeldStatusReleased))
	assert.True(t, CanTransitionHeld(HeldStatusHeld, HeldStatusRefunded))

	// released и refunded взаимоисключающи и терминальны.
	assert.False(t, CanTransitionHeld(HeldStatusReleased, HeldStatusRefunded))
	assert.False(t, CanTransitionHeld(HeldStatusRefunded, HeldStatusReleased))
	assert.False(t, CanTransitionHeld(HeldStatusReleased, HeldStatusHeld))
	assert.False(t, CanTransitionHeld(HeldStatusPending, HeldStatusReleased))
	assert.False(t, CanTransitionHeld(HeldStatusPending, HeldStatusRefunded))
}
