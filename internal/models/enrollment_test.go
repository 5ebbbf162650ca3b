package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    EnrollmentStatus
		to      EnrollmentStatus
		allowed bool
	}{
		{EnrollmentStatusPending, EnrollmentStatusApproved, true},
		{EnrollmentStatusPending, EnrollmentStatusRejected, true},
		{EnrollmentStatusPending, EnrollmentStatusActive, false},
		{EnrollmentStatusPending, EnrollmentStatusCompleted, false},
		{EnrollmentStatusApproved, EnrollmentStatusActive, true},
		{EnrollmentStatusApproved, EnrollmentStatusDropped, true},
		{EnrollmentStatusApproved, EnrollmentStatusCompleted, false},
		{EnrollmentStatusActive, EnrollmentStatusCompleted, true},
		{EnrollmentStatusActive, EnrollmentStatusDropped, true},
		{EnrollmentStatusActive, EnrollmentStatusApproved, false},
		{EnrollmentStatusRejected, EnrollmentStatusApproved, false},
		{EnrollmentStatusCompleted, EnrollmentStatusDropped, false},
		{EnrollmentStatusDropped, EnrollmentStatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEnrollmentStatusCounted(t *testing.T) {
	assert.False(t, EnrollmentStatusPending.Counted())
	assert.True(t, EnrollmentStatusApproved.Counted())
	assert.True(t, EnrollmentStatusActive.Counted())
	assert.False(t, EnrollmentStatusRejected.Counted())
	assert.False(t, EnrollmentStatusCompleted.Counted())
	assert.False(t, EnrollmentStatusDropped.Counted())
}

func TestEnrollmentStatusTerminal(t *testing.T) {
	assert.True(t, EnrollmentStatusRejected.Terminal())
	assert.True(t, EnrollmentStatusCompleted.Terminal())
	assert.True(t, EnrollmentStatusDropped.Terminal())
	assert.False(t, EnrollmentStatusPending.Terminal())
	assert.False(t, EnrollmentStatusApproved.Terminal())
	assert.False(t, EnrollmentStatusActive.Terminal())
}
