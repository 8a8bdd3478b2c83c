package consumer

import "errors"

// ErrTerminated is returned by Run when the session could not be restored
// after a connection loss.
var ErrTerminated = errors.New("consumer: session terminated")
