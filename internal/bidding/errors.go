package bidding

import "errors"

var (
	// ErrNotConnected is returned when a send is attempted while the
	// connection is down. Recoverable: the caller may reconnect and retry.
	ErrNotConnected = errors.New("bidding: not connected")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("bidding: session is closed")

	// ErrSessionNotReady is returned when a bid is submitted before the
	// session finished opening.
	ErrSessionNotReady = errors.New("bidding: session is not ready")
)
