package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates rejected input before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates an illegal lifecycle transition.
	ErrInvalidState = errors.New("invalid state transition")
)

// UserSafeMessage maps known errors to messages safe to show operators.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist."
	case errors.Is(err, ErrValidation):
		return "The submitted data is invalid."
	case errors.Is(err, ErrInvalidState):
		return "The operation is not allowed in the current state."
	default:
		return "An unexpected error occurred."
	}
}
