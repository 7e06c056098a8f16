package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guestlist/internal/domain"
)

func confirmedInvitee(id, eventID, phone, token string) *domain.Invitee {
	inv := testInvitee(id, eventID, phone, token)
	now := time.Now()
	inv.Confirmed = true
	inv.ConfirmedAt = &now
	return inv
}

func newCheckInFixture() (*mockEventRepository, *mockInviteeRepository, domain.CheckInService) {
	eventRepo := newMockEventRepository()
	inviteeRepo := newMockInviteeRepository()
	svc := NewCheckInService(eventRepo, inviteeRepo, 2*time.Second)
	return eventRepo, inviteeRepo, svc
}

func TestCheckInService_CheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("by phone", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(confirmedInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		got, err := svc.CheckIn(ctx, "ev-1", "+15550001", "")
		if err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
		if !got.CheckedIn || got.CheckedInAt == nil {
			t.Fatalf("expected checked-in invitee, got %+v", got)
		}
	})

	t.Run("by qr token", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(confirmedInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		got, err := svc.CheckIn(ctx, "ev-1", "", "tok-1")
		if err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
		if !got.CheckedIn {
			t.Fatalf("expected checked-in invitee, got %+v", got)
		}
	})

	t.Run("neither phone nor token", func(t *testing.T) {
		_, _, svc := newCheckInFixture()
		if _, err := svc.CheckIn(ctx, "ev-1", "", ""); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("both phone and token", func(t *testing.T) {
		_, _, svc := newCheckInFixture()
		if _, err := svc.CheckIn(ctx, "ev-1", "+15550001", "tok-1"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("token from another event is rejected", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		eventRepo.add(testEvent("ev-2", "user-1"))
		inviteeRepo.add(confirmedInvitee("inv-1", "ev-2", "+15550001", "tok-other"))

		got, err := svc.CheckIn(ctx, "ev-1", "", "tok-other")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v (invitee %+v)", err, got)
		}
		// The invitee under its own event is untouched.
		current, _ := inviteeRepo.GetByID(ctx, "inv-1")
		if current.CheckedIn {
			t.Fatal("cross-event scan must not check anyone in")
		}
	})

	t.Run("unconfirmed invitee", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(testInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		if _, err := svc.CheckIn(ctx, "ev-1", "+15550001", ""); !errors.Is(err, domain.ErrNotConfirmed) {
			t.Fatalf("expected ErrNotConfirmed, got %v", err)
		}
	})

	t.Run("second scan fails", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(confirmedInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		if _, err := svc.CheckIn(ctx, "ev-1", "", "tok-1"); err != nil {
			t.Fatalf("first CheckIn: %v", err)
		}
		if _, err := svc.CheckIn(ctx, "ev-1", "", "tok-1"); !errors.Is(err, domain.ErrAlreadyCheckedIn) {
			t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		_, _, svc := newCheckInFixture()
		if _, err := svc.CheckIn(ctx, "ev-missing", "+15550001", ""); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCheckInService_CheckIn_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	eventRepo, inviteeRepo, svc := newCheckInFixture()
	eventRepo.add(testEvent("ev-1", "user-1"))
	inviteeRepo.add(confirmedInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

	const workers = 25
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(useToken bool) {
			defer wg.Done()
			var err error
			if useToken {
				_, err = svc.CheckIn(ctx, "ev-1", "", "tok-1")
			} else {
				_, err = svc.CheckIn(ctx, "ev-1", "+15550001", "")
			}
			results <- err
		}(i%2 == 0)
	}
	wg.Wait()
	close(results)

	var wins, already int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadyCheckedIn):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", wins)
	}
	if already != workers-1 {
		t.Fatalf("expected %d ErrAlreadyCheckedIn, got %d", workers-1, already)
	}
}

func TestCheckInService_SetCheckedIn(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses to check in an unconfirmed invitee", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(testInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		if _, err := svc.SetCheckedIn(ctx, "inv-1", true); !errors.Is(err, domain.ErrNotConfirmed) {
			t.Fatalf("expected ErrNotConfirmed, got %v", err)
		}
	})

	t.Run("sets and clears without the already-checked-in guard", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(confirmedInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		got, err := svc.SetCheckedIn(ctx, "inv-1", true)
		if err != nil {
			t.Fatalf("SetCheckedIn(true): %v", err)
		}
		if !got.CheckedIn {
			t.Fatal("expected checked_in=true")
		}

		// Setting true again is idempotent for the override, not a conflict.
		if _, err := svc.SetCheckedIn(ctx, "inv-1", true); err != nil {
			t.Fatalf("SetCheckedIn(true) repeat: %v", err)
		}

		got, err = svc.SetCheckedIn(ctx, "inv-1", false)
		if err != nil {
			t.Fatalf("SetCheckedIn(false): %v", err)
		}
		if got.CheckedIn || got.CheckedInAt != nil {
			t.Fatalf("expected cleared check-in, got %+v", got)
		}
	})

	t.Run("unknown invitee", func(t *testing.T) {
		_, _, svc := newCheckInFixture()
		if _, err := svc.SetCheckedIn(ctx, "inv-missing", true); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCheckInService_SetConfirmed(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfirming clears the check-in", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inv := confirmedInvitee("inv-1", "ev-1", "+15550001", "tok-1")
		now := time.Now()
		inv.CheckedIn = true
		inv.CheckedInAt = &now
		inviteeRepo.add(inv)

		got, err := svc.SetConfirmed(ctx, "inv-1", false, nil, nil)
		if err != nil {
			t.Fatalf("SetConfirmed(false): %v", err)
		}
		if got.Confirmed || got.CheckedIn {
			t.Fatalf("expected both flags cleared, got %+v", got)
		}
		if err := got.ValidateState(); err != nil {
			t.Fatalf("state invariant violated: %v", err)
		}
	})

	t.Run("confirming stores contact details", func(t *testing.T) {
		eventRepo, inviteeRepo, svc := newCheckInFixture()
		eventRepo.add(testEvent("ev-1", "user-1"))
		inviteeRepo.add(testInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

		got, err := svc.SetConfirmed(ctx, "inv-1", true, strptr("b@example.com"), strptr("Bo"))
		if err != nil {
			t.Fatalf("SetConfirmed(true): %v", err)
		}
		if !got.Confirmed || got.Email == nil || *got.Email != "b@example.com" {
			t.Fatalf("unexpected invitee %+v", got)
		}
	})

	t.Run("unknown invitee", func(t *testing.T) {
		_, _, svc := newCheckInFixture()
		if _, err := svc.SetConfirmed(ctx, "inv-missing", true, nil, nil); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// TestInviteeLifecycle walks an invitee through the full state machine across
// both services: pending -> confirmed -> checked in -> unconfirmed (cascade)
// -> re-confirmed -> checked in again.
func TestInviteeLifecycle(t *testing.T) {
	ctx := context.Background()
	eventRepo := newMockEventRepository()
	inviteeRepo := newMockInviteeRepository()
	emails := newMockEmailService()
	confirmSvc := NewConfirmationService(eventRepo, inviteeRepo, emails, discardLogger(), "https://events.example.com", 2*time.Second)
	checkInSvc := NewCheckInService(eventRepo, inviteeRepo, 2*time.Second)

	eventRepo.add(testEvent("ev-1", "user-1"))
	inviteeRepo.add(testInvitee("inv-1", "ev-1", "+15550001", "tok-1"))

	// Check-in before confirmation is refused.
	if _, err := checkInSvc.CheckIn(ctx, "ev-1", "+15550001", ""); !errors.Is(err, domain.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}

	if _, err := confirmSvc.Confirm(ctx, "ev-1", "+15550001", nil, nil); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, err := checkInSvc.CheckIn(ctx, "ev-1", "", "tok-1"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	// Unconfirm cascades: the check-in goes with it.
	got, err := checkInSvc.SetConfirmed(ctx, "inv-1", false, nil, nil)
	if err != nil {
		t.Fatalf("SetConfirmed(false): %v", err)
	}
	if got.Status() != domain.StatusPending {
		t.Fatalf("expected pending after unconfirm, got %s", got.Status())
	}

	// The public flow can confirm again, and the door can scan again.
	if _, err := confirmSvc.Confirm(ctx, "ev-1", "+15550001", nil, nil); err != nil {
		t.Fatalf("re-Confirm: %v", err)
	}
	got2, err := checkInSvc.CheckIn(ctx, "ev-1", "+15550001", "")
	if err != nil {
		t.Fatalf("re-CheckIn: %v", err)
	}
	if got2.Status() != domain.StatusCheckedIn {
		t.Fatalf("expected checked_in, got %s", got2.Status())
	}
	if err := got2.ValidateState(); err != nil {
		t.Fatalf("state invariant violated: %v", err)
	}
}
