package core

import "errors"

// Session errors
var (
	// ErrAlreadyActive is returned by Begin while another session is active
	ErrAlreadyActive = errors.New("session already active")

	// ErrAuthTimeout is returned when interactive authentication does not
	// complete within the configured bound
	ErrAuthTimeout = errors.New("authentication timed out")

	// ErrDriverFailure wraps failures of the underlying session driver
	ErrDriverFailure = errors.New("session driver failure")
)

// Send errors
var (
	// ErrNoSession is returned when a send cannot acquire the session
	ErrNoSession = errors.New("no session available")
)

// ErrClassification is returned when the classification capability produces
// output that cannot be parsed as the expected structure. The flagging batch
// fails closed.
var ErrClassification = errors.New("classification response malformed")
