package orders

import "fmt"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

type Action string

const (
	ActionMarkProcessing Action = "mark_processing"
	ActionMarkShipped    Action = "mark_shipped"
	ActionMarkDelivered  Action = "mark_delivered"
	ActionMarkCancelled  Action = "mark_cancelled"
	ActionMarkReturned   Action = "mark_returned"
)

var actionTarget = map[Action]Status{
	ActionMarkProcessing: StatusProcessing,
	ActionMarkShipped:    StatusShipped,
	ActionMarkDelivered:  StatusDelivered,
	ActionMarkCancelled:  StatusCancelled,
	ActionMarkReturned:   StatusReturned,
}

// validFrom encodes the transition table. cancelled is terminal; returned may
// re-enter processing or be cancelled for good.
var validFrom = map[Action]map[Status]bool{
	ActionMarkProcessing: {StatusPending: true, StatusReturned: true},
	ActionMarkShipped:    {StatusPending: true, StatusProcessing: true},
	ActionMarkDelivered:  {StatusPending: true, StatusProcessing: true, StatusShipped: true},
	ActionMarkCancelled:  {StatusPending: true, StatusProcessing: true, StatusShipped: true, StatusDelivered: true, StatusReturned: true},
	ActionMarkReturned:   {StatusShipped: true, StatusDelivered: true},
}

// Apply resolves an action against the current status. It returns the new
// status or ErrUnknownAction / ErrInvalidTransition; it never mutates anything.
func Apply(current Status, action Action) (Status, error) {
	target, ok := actionTarget[action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !validFrom[action][current] {
		return "", fmt.Errorf("%w: cannot apply %q to order in status %q", ErrInvalidTransition, action, current)
	}
	return target, nil
}
