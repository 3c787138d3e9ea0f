package sync

import "errors"

var (
	// ErrListUnavailable is returned when the list of the user's own issues
	// could not be obtained. The whole refresh is abandoned.
	ErrListUnavailable = errors.New("issue list unavailable")
	// ErrDuplicateChainTooDeep is returned when following duplicate
	// redirects does not reach a canonical issue within the depth bound.
	ErrDuplicateChainTooDeep = errors.New("duplicate chain too deep")
)
