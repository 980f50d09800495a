package light

import "errors"

// ErrInvalidIntent is returned (via Run, never SetIntent) when an intent
// produces a payload the codec rejects. This is a programming error and
// is not retried.
var ErrInvalidIntent = errors.New("light: invalid intent")
