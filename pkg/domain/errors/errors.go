package errors

import "errors"

// requested record does not exist.
var ErrMissing = errors.New("missing")

// records are found more than expected.
var ErrTooMuch = errors.New("too much")

// a record violating uniqueness already exists.
var ErrConflict = errors.New("conflict")
