package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guestlist/internal/domain"
)

type checkInService struct {
	eventRepo      domain.EventRepository
	inviteeRepo    domain.InviteeRepository
	contextTimeout time.Duration
}

// NewCheckInService creates the door-side check-in service.
func NewCheckInService(
	eventRepo domain.EventRepository,
	inviteeRepo domain.InviteeRepository,
	timeout time.Duration,
) domain.CheckInService {
	return &checkInService{
		eventRepo:      eventRepo,
		inviteeRepo:    inviteeRepo,
		contextTimeout: timeout,
	}
}

func (s *checkInService) CheckIn(ctx context.Context, eventID, phone, qrToken string) (*domain.Invitee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// Exactly one lookup mode. Both or neither is a request error, not a
	// domain outcome.
	if (phone == "") == (qrToken == "") {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	var invitee *domain.Invitee
	var err error
	if phone != "" {
		invitee, err = s.inviteeRepo.GetByEventAndPhone(ctx, eventID, phone)
	} else {
		invitee, err = s.inviteeRepo.GetByQRToken(ctx, qrToken)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitee: %w", err)
	}
	// A token issued under another event resolves to a real invitee, but the
	// check-in must be rejected, never silently redirected to that event.
	if invitee.EventID != eventID {
		return nil, domain.ErrNotFound
	}

	if !invitee.Confirmed {
		return nil, domain.ErrNotConfirmed
	}
	if invitee.CheckedIn {
		return nil, domain.ErrAlreadyCheckedIn
	}

	updated, err := s.inviteeRepo.CheckIn(ctx, invitee.ID, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent scan won. Confirm that from a fresh read before
			// reporting AlreadyCheckedIn.
			current, readErr := s.inviteeRepo.GetByID(ctx, invitee.ID)
			if readErr == nil && current.CheckedIn {
				return nil, domain.ErrAlreadyCheckedIn
			}
			return nil, fmt.Errorf("check in invitee %s: update matched no rows", invitee.ID)
		}
		return nil, fmt.Errorf("check in invitee: %w", err)
	}
	return updated, nil
}

// SetCheckedIn toggles check-in directly from the admin table. It skips the
// AlreadyCheckedIn guard, but checking in an unconfirmed invitee is still
// refused.
func (s *checkInService) SetCheckedIn(ctx context.Context, inviteeID string, checkedIn bool) (*domain.Invitee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	invitee, err := s.inviteeRepo.GetByID(ctx, inviteeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitee: %w", err)
	}
	if checkedIn && !invitee.Confirmed {
		return nil, domain.ErrNotConfirmed
	}

	updated, err := s.inviteeRepo.SetCheckedIn(ctx, inviteeID, checkedIn, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// The row changed between our read and the update: either it was
			// deleted or a concurrent unconfirm cleared the confirmed flag.
			current, readErr := s.inviteeRepo.GetByID(ctx, inviteeID)
			if readErr != nil {
				return nil, domain.ErrNotFound
			}
			if !current.Confirmed {
				return nil, domain.ErrNotConfirmed
			}
			return nil, fmt.Errorf("set checked_in for invitee %s: update matched no rows", inviteeID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("set checked_in: %w", err)
	}
	return updated, nil
}

// SetConfirmed toggles confirmation directly from the admin table.
// Unconfirming cascades in storage: the check-in is cleared in the same
// update, so the checked-in implies confirmed rule holds at every point.
func (s *checkInService) SetConfirmed(ctx context.Context, inviteeID string, confirmed bool, email, name *string) (*domain.Invitee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	updated, err := s.inviteeRepo.SetConfirmed(ctx, inviteeID, confirmed, email, name, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("set confirmed: %w", err)
	}
	return updated, nil
}
