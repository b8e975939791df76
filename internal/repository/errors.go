package repository

import "errors"

// ErrNotFound is the repository-level sentinel returned when a query for a
// single entity finds no rows. The service layer translates it into a domain
// error, so business logic never sees sql.ErrNoRows directly.
var ErrNotFound = errors.New("repository: not found")
