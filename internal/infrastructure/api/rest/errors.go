package rest

import (
	"errors"
	"net/http"

	derrors "hostcp/internal/domain/errors"
)

// statusForError maps the error taxonomy to the HTTP status the
// route table assigns it: 400 for pathfinder/resolution failures the
// caller can fix by retrying with different input, 500 for everything
// else (construction, persistence, controller, verification).
func statusForError(err error) int {
	var pathErr *derrors.PathNotFoundError
	var ambigErr *derrors.AmbiguousTargetError
	var entryErr *derrors.NoEntryPointError
	switch {
	case errors.As(err, &pathErr), errors.As(err, &ambigErr), errors.As(err, &entryErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
