package repository

import (
	"errors"

	"salescrm_backend/platform/apperr"
)

// Translate maps store errors onto domain errors for op. entity names the
// record in user-facing messages.
func Translate(op, entity string, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(entity + " not found").WithOp(op)
	case errors.Is(err, ErrStale):
		return apperr.Conflict(entity + " was modified concurrently").WithOp(op)
	case errors.Is(err, ErrDuplicate):
		return apperr.Conflict(entity + " already exists").WithOp(op)
	case errors.Is(err, ErrQuotaExhausted):
		return apperr.NoChannelAvailable("channel is inactive or at its daily limit").WithOp(op)
	default:
		return apperr.Storage(err).WithOp(op)
	}
}
