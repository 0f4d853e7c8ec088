package remote

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoRow        = errors.New("no matching row")
)

// RemoteError carries a message reported by the remote service itself, as
// opposed to a transport failure. Write-path callers surface the message to
// the user verbatim.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}
