package starboard

import "errors"

// ErrTransient marks a failure of the output channel that is safe to retry on a
// later observation.
var ErrTransient = errors.New("output channel unavailable")
