package domain

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors shared by services, repositories and the HTTP layer.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCapacityExceeded  = errors.New("opportunity is full")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrNotRegistered     = errors.New("not registered")
	ErrNotApproved       = errors.New("opportunity is not approved")
	ErrWindowClosed      = errors.New("cancellation window closed")
	ErrRemoteUnavailable = errors.New("store unavailable")
)

// ErrHostCannotLeave is returned when the host tries to unregister from their own opportunity.
var ErrHostCannotLeave = fmt.Errorf("%w: the host cannot unregister", ErrForbidden)

// WindowClosedError reports a rejected unregister together with the hours left before start.
// It matches ErrWindowClosed with errors.Is.
type WindowClosedError struct {
	HoursRemaining float64
}

func (e *WindowClosedError) Error() string {
	return fmt.Sprintf("%s: event starts in %.1f hours", ErrWindowClosed, math.Max(e.HoursRemaining, 0))
}

func (e *WindowClosedError) Is(target error) bool {
	return target == ErrWindowClosed
}
