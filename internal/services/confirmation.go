package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"guestlist/internal/domain"
)

type confirmationService struct {
	eventRepo       domain.EventRepository
	inviteeRepo     domain.InviteeRepository
	emailService    domain.EmailService
	logger          *slog.Logger
	publicBaseURL   string
	contextTimeout  time.Duration
	dispatchTimeout time.Duration
}

// NewConfirmationService creates the public confirmation service. Email
// dispatch after a successful confirmation is best-effort and asynchronous;
// its failures are logged, never returned to the caller.
func NewConfirmationService(
	eventRepo domain.EventRepository,
	inviteeRepo domain.InviteeRepository,
	emailService domain.EmailService,
	logger *slog.Logger,
	publicBaseURL string,
	timeout time.Duration,
) domain.ConfirmationService {
	return &confirmationService{
		eventRepo:       eventRepo,
		inviteeRepo:     inviteeRepo,
		emailService:    emailService,
		logger:          logger,
		publicBaseURL:   publicBaseURL,
		contextTimeout:  timeout,
		dispatchTimeout: timeout,
	}
}

func (s *confirmationService) Confirm(ctx context.Context, eventID, phone string, email, name *string) (*domain.Invitee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	// Allow-list policy: only pre-registered phone numbers can confirm.
	// The public flow never creates invitees.
	invitee, err := s.inviteeRepo.GetByEventAndPhone(ctx, eventID, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitee: %w", err)
	}

	if invitee.Confirmed {
		return nil, domain.ErrAlreadyConfirmed
	}

	updated, err := s.inviteeRepo.Confirm(ctx, invitee.ID, email, name, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race. Re-derive the outcome from a fresh read instead
			// of assuming: the guard column may not be the only reason the
			// update matched nothing.
			current, readErr := s.inviteeRepo.GetByID(ctx, invitee.ID)
			if readErr == nil && current.Confirmed {
				return nil, domain.ErrAlreadyConfirmed
			}
			return nil, fmt.Errorf("confirm invitee %s: update matched no rows", invitee.ID)
		}
		return nil, fmt.Errorf("confirm invitee: %w", err)
	}

	// Confirmation is the durable fact; the invitation email is a courtesy.
	// Dispatch runs detached so it can outlive this request, and its failure
	// never reverts the confirmation or fails the response.
	s.dispatchInvitation(updated, event)

	return updated, nil
}

func (s *confirmationService) dispatchInvitation(invitee *domain.Invitee, event *domain.Event) {
	if invitee.Email == nil || *invitee.Email == "" {
		return
	}
	to := *invitee.Email
	guestName := "Guest"
	if invitee.Name != nil && *invitee.Name != "" {
		guestName = *invitee.Name
	}
	data := &domain.InvitationEmailData{
		Email:         to,
		GuestName:     guestName,
		EventTitle:    event.Title,
		EventLocation: event.Location,
		StartTime:     event.StartTime,
		InvitationURL: invitationURL(s.publicBaseURL, invitee.QRToken),
	}
	if event.Description != nil {
		data.EventDesc = *event.Description
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		if err := s.emailService.SendInvitation(ctx, data); err != nil {
			s.logger.Error("invitation dispatch failed",
				"invitee_id", invitee.ID, "event_id", event.ID, "err", err)
			return
		}
		if err := s.inviteeRepo.MarkEmailSent(ctx, invitee.ID, time.Now()); err != nil {
			s.logger.Error("mark email sent failed", "invitee_id", invitee.ID, "err", err)
		}
	}()
}

func (s *confirmationService) CheckByPhone(ctx context.Context, eventID, phone string) (*domain.InviteeWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	invitee, err := s.inviteeRepo.GetByEventAndPhone(ctx, eventID, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitee: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &domain.InviteeWithEvent{Invitee: invitee, Event: event}, nil
}

func (s *confirmationService) LookupByToken(ctx context.Context, qrToken string) (*domain.InviteeWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	invitee, err := s.inviteeRepo.GetByQRToken(ctx, qrToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invitee by token: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, invitee.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &domain.InviteeWithEvent{Invitee: invitee, Event: event}, nil
}
