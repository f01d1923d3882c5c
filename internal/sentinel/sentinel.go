package sentinel

import "errors"

// Error kinds shared by the store and the services. Callers match on these with
// errors.Is; the concrete *Error carries the operator-facing reason.
var (
	ErrNotFound           = errors.New("not found")
	ErrExpired            = errors.New("expired")
	ErrPolicyDenied       = errors.New("policy denied")
	ErrDuplicate          = errors.New("duplicate")
	ErrExternalFailure    = errors.New("external failure")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error is a domain failure with a short message meant for the end user.
type Error struct {
	Kind   error
	Reason string
}

// New builds a domain error of the given kind.
func New(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Kind }

// Reason returns the operator-facing message of err, falling back to err.Error().
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}

// Kind returns the sentinel kind err wraps, or nil for infrastructure errors.
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound, ErrExpired, ErrPolicyDenied, ErrDuplicate,
		ErrExternalFailure, ErrInvalidInput, ErrInvalidCredentials,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
