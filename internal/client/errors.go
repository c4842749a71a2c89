package client

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks transport-level failures reaching the upstream server
// (refused connections, DNS failures, handshake errors). The handler layer
// maps it to 502 Bad Gateway.
var ErrUnreachable = errors.New("upstream server is unreachable")

// APIError is a structured error response returned by the upstream API.
// The proxy re-emits its status, reason and body verbatim to the caller.
type APIError struct {
	Status      int
	Reason      string
	ContentType string
	Body        []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API error: %d %s", e.Status, e.Reason)
}
