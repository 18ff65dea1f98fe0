/*
Package game
File: errors.go
Description:
    Rejection taxonomy. Every validation failure is one of these sentinels,
    usually wrapped with detail via fmt.Errorf("%w: ..."). Nothing here is fatal;
    a rejected action leaves state untouched.
*/

package game

import "errors"

var (
	ErrRateLimited       = errors.New("scan claimed too fast")
	ErrInsufficientFunds = errors.New("insufficient green credits")
	ErrCapacityExceeded  = errors.New("zone has no plantable spots left")
	ErrIneligible        = errors.New("sponsored planting locked")
	ErrLocationRequired  = errors.New("gps location required")
	ErrCooldownActive    = errors.New("maintenance cooldown active")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyClaimed    = errors.New("bonus already claimed")
	ErrInvalidAction     = errors.New("invalid action")
)

// Reason maps an error to a stable machine-readable code, or "" for nil.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrIneligible):
		return "ineligible"
	case errors.Is(err, ErrLocationRequired):
		return "location_required"
	case errors.Is(err, ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	default:
		return "internal"
	}
}
