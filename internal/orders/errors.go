package orders

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrAlreadyExists       = errors.New("order already exists")
	ErrUnknownAction       = errors.New("unknown action")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrValidation          = errors.New("validation failure")
	ErrInventoryAdjustment = errors.New("inventory adjustment failure")
)
