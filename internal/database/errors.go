package database

import "github.com/pkg/errors"

// ErrNotFound is returned when a referenced table, product, order, user or
// qr code does not exist. Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")
