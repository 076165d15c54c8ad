package discount

import "fmt"

// Reason is the fixed rejection taxonomy for coupon evaluation. The discount
// service reports failures in several loose shapes; everything is normalized
// into these values at this boundary so callers never string-match.
type Reason string

const (
	ReasonCodeNotFound      Reason = "CODE_NOT_FOUND"
	ReasonCodeExpired       Reason = "CODE_EXPIRED"
	ReasonCodeNotStarted    Reason = "CODE_NOT_STARTED"
	ReasonCodeInactive      Reason = "CODE_INACTIVE"
	ReasonUsageLimitReached Reason = "USAGE_LIMIT_REACHED"
	ReasonOrderTooSmall     Reason = "ORDER_TOO_SMALL"
	ReasonInvalidFormat     Reason = "INVALID_FORMAT"
	ReasonServerError       Reason = "SERVER_ERROR"
	ReasonNetworkError      Reason = "NETWORK_ERROR"
)

// RejectionError reports why a coupon code was not applied. It is a normal,
// recoverable outcome surfaced to the user, not an infrastructure fault.
type RejectionError struct {
	Reason  Reason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("coupon rejected (%s): %s", e.Reason, e.Message)
}

// Reject builds a RejectionError.
func Reject(reason Reason, message string) *RejectionError {
	return &RejectionError{Reason: reason, Message: message}
}
