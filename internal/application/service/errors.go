package service

import "errors"

// ErrNotFound is returned when a requested record does not exist or is not
// visible to the caller's company.
var ErrNotFound = errors.New("not found")
