package orders

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAllowedTransitions(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusPending, ActionMarkProcessing, StatusProcessing},
		{StatusReturned, ActionMarkProcessing, StatusProcessing},
		{StatusPending, ActionMarkShipped, StatusShipped},
		{StatusProcessing, ActionMarkShipped, StatusShipped},
		{StatusPending, ActionMarkDelivered, StatusDelivered},
		{StatusProcessing, ActionMarkDelivered, StatusDelivered},
		{StatusShipped, ActionMarkDelivered, StatusDelivered},
		{StatusPending, ActionMarkCancelled, StatusCancelled},
		{StatusProcessing, ActionMarkCancelled, StatusCancelled},
		{StatusShipped, ActionMarkCancelled, StatusCancelled},
		{StatusDelivered, ActionMarkCancelled, StatusCancelled},
		{StatusReturned, ActionMarkCancelled, StatusCancelled},
		{StatusShipped, ActionMarkReturned, StatusReturned},
		{StatusDelivered, ActionMarkReturned, StatusReturned},
	}
	for _, c := range cases {
		got, err := Apply(c.from, c.action)
		require.NoError(t, err, "%s from %s", c.action, c.from)
		assert.Equal(t, c.want, got)
	}
}

func TestApplyRejectedTransitions(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
	}{
		{StatusDelivered, ActionMarkDelivered}, // no delivered->delivered entry
		{StatusDelivered, ActionMarkShipped},
		{StatusReturned, ActionMarkReturned},
		{StatusPending, ActionMarkReturned},
		{StatusProcessing, ActionMarkProcessing},
	}
	for _, c := range cases {
		_, err := Apply(c.from, c.action)
		require.Error(t, err, "%s from %s", c.action, c.from)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Contains(t, err.Error(), string(c.from))
		assert.Contains(t, err.Error(), string(c.action))
	}
}

func TestApplyCancelledIsTerminal(t *testing.T) {
	for action := range actionTarget {
		_, err := Apply(StatusCancelled, action)
		assert.ErrorIs(t, err, ErrInvalidTransition, "action %s", action)
	}
}

func TestApplyUnknownAction(t *testing.T) {
	_, err := Apply(StatusPending, Action("mark_teleported"))
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Contains(t, err.Error(), "mark_teleported")
}
