package progress

import "errors"

var (
	// ErrAlreadyCompleted is returned when a task or mission was already
	// completed for the current day.
	ErrAlreadyCompleted = errors.New("already completed today")

	// ErrNotEligible is returned when a mission is claimed before its
	// requirement is met.
	ErrNotEligible = errors.New("not yet eligible")

	// ErrInvalidInput covers unknown stat kinds, missions, tasks and
	// malformed amounts. Requests failing with it never mutate state.
	ErrInvalidInput = errors.New("invalid input")
)

// IsRejection reports whether err is a recoverable completion rejection
// that should be surfaced as an unsuccessful result rather than a failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrNotEligible)
}
