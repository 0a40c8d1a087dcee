package services

import "errors"

// ErrNotFound covers both a genuinely absent document and one outside the
// caller's visible set; the two are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when a mutation fails its ownership check.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a unique constraint is violated
// (duplicate user email).
var ErrConflict = errors.New("already exists")
