package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to declined", StatusPending, StatusDeclined, true},
		{"pending to complete skips approval", StatusPending, StatusComplete, false},
		{"pending to pending", StatusPending, StatusPending, false},
		{"approved to complete", StatusApproved, StatusComplete, true},
		{"approved to declined", StatusApproved, StatusDeclined, false},
		{"approved to pending", StatusApproved, StatusPending, false},
		{"declined is terminal", StatusDeclined, StatusApproved, false},
		{"declined to complete", StatusDeclined, StatusComplete, false},
		{"complete is terminal", StatusComplete, StatusApproved, false},
		{"complete to pending", StatusComplete, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.True(t, StatusComplete.Terminal())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("approved")
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, s)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)

	_, ok = ParseStatus("")
	assert.False(t, ok)
}
