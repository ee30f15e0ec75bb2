package cache

import "errors"

// ErrCorrupt is returned by Open when a sealed payload fails verification.
// Backends translate it into a miss.
var ErrCorrupt = errors.New("corrupt cache entry")
