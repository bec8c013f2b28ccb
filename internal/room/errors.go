package room

import "errors"

// ErrNegotiationFailed wraps offer/answer/candidate failures. The affected
// peer is torn down and may be re-created on the next discovery or signal
// for that identity; the room itself keeps running.
var ErrNegotiationFailed = errors.New("negotiation failed")
