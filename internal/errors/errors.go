package errors

import "errors"

// This package defines a centralized set of sentinel errors for the application.
// Services return these (usually wrapped with context via fmt.Errorf and %w)
// and the API layer maps them to HTTP status codes with errors.Is(). This keeps
// the business logic free of any knowledge about HTTP.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client-supplied input failed validation.
	// Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized signifies a failed credential check or a missing/invalid
	// session. The message shown to the client is always generic so that it
	// never reveals which part of the credentials was wrong.
	// Mapped to 401 Unauthorized.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal signifies an unexpected server-side failure. The detailed
	// cause is logged; the client only ever sees a generic message.
	// Mapped to 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)
