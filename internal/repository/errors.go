// Package repository holds the key-value store access for the queue: the
// per-day state triple (metadata, ticket list, counter), archives, prize
// settings and the optional SQL archive mirror.  The sentinel errors below
// let the service and handler layers tell a missing record apart from a
// failed store call.
package repository

import "errors"

// ErrArchiveNotFound is returned when no archive exists for a date.
// Handlers should translate this into an HTTP 404 response.
var ErrArchiveNotFound = errors.New("archive not found")

// ErrConflict is returned when an optimistic transaction kept losing the
// race against concurrent writers and gave up.
var ErrConflict = errors.New("conflict")
