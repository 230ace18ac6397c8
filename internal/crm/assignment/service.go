// Package assignment rotates new leads across employees, least recently
// assigned first.
package assignment

import (
	"context"
	"errors"
	"time"

	"salescrm_backend/internal/crm/domain"
	"salescrm_backend/internal/crm/repository"
	"salescrm_backend/platform/apperr"
	"salescrm_backend/platform/logger"
)

// maxClaimAttempts bounds re-reads after losing the cursor to a concurrent caller.
const maxClaimAttempts = 5

type Service struct {
	users repository.UserStore
	log   *logger.Logger
	now   func() time.Time
}

func New(users repository.UserStore, log *logger.Logger) *Service {
	return &Service{users: users, log: log, now: time.Now}
}

// AssignNext picks the employee with the oldest lastLeadAssigned and moves
// their cursor to now. The move is a compare-and-set on the value that was
// read, so two concurrent calls never pick the same employee.
func (s *Service) AssignNext(ctx context.Context) (domain.User, error) {
	const op = "assignment.AssignNext"

	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		candidate, err := s.users.NextAssigneeCandidate(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, apperr.NoEligibleAssignee("no active employee available for assignment").WithOp(op)
		}
		if err != nil {
			return domain.User{}, apperr.Storage(err).WithOp(op)
		}

		at := s.claimTime(candidate.LastLeadAssigned)
		won, err := s.users.ClaimAssignee(ctx, candidate.ID, candidate.LastLeadAssigned, at)
		if err != nil {
			return domain.User{}, apperr.Storage(err).WithOp(op)
		}
		if won {
			candidate.LastLeadAssigned = &at
			return candidate, nil
		}

		s.log.WithContext(ctx).Debug("assignment cursor moved concurrently, retrying",
			"userId", candidate.ID, "attempt", attempt)
	}

	return domain.User{}, apperr.Conflict("lead assignment is contended, retry later").WithOp(op)
}

// claimTime is now at database precision, kept strictly after previous so a
// skewed clock cannot move the cursor backwards.
func (s *Service) claimTime(previous *time.Time) time.Time {
	at := s.now().UTC().Truncate(time.Microsecond)
	if previous != nil && !at.After(*previous) {
		at = previous.Add(time.Microsecond)
	}
	return at
}
