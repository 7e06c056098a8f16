package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guestlist/internal/domain"
)

type inviteeService struct {
	eventRepo      domain.EventRepository
	inviteeRepo    domain.InviteeRepository
	tokenGen       domain.QRTokenGenerator
	emailService   domain.EmailService
	publicBaseURL  string
	contextTimeout time.Duration
}

// NewInviteeService creates the organizer-facing invitee management service.
func NewInviteeService(
	eventRepo domain.EventRepository,
	inviteeRepo domain.InviteeRepository,
	tokenGen domain.QRTokenGenerator,
	emailService domain.EmailService,
	publicBaseURL string,
	timeout time.Duration,
) domain.InviteeService {
	return &inviteeService{
		eventRepo:      eventRepo,
		inviteeRepo:    inviteeRepo,
		tokenGen:       tokenGen,
		emailService:   emailService,
		publicBaseURL:  publicBaseURL,
		contextTimeout: timeout,
	}
}

func (s *inviteeService) CreateInvitee(ctx context.Context, eventID, phone string, email, name, notes *string) (*domain.Invitee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if phone == "" || eventID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	token, err := s.tokenGen.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate qr token: %w", err)
	}
	invitee := domain.NewInvitee(eventID, phone, token, email, name, notes, time.Now())

	err = s.inviteeRepo.Create(ctx, invitee)
	if errors.Is(err, domain.ErrDuplicateQRToken) {
		// A 128-bit collision should be statistically unreachable; retry once
		// and treat a second violation as a fatal precondition failure.
		token, genErr := s.tokenGen.Generate()
		if genErr != nil {
			return nil, fmt.Errorf("regenerate qr token: %w", genErr)
		}
		invitee.QRToken = token
		err = s.inviteeRepo.Create(ctx, invitee)
	}
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePhone) {
			return nil, domain.ErrDuplicatePhone
		}
		return nil, fmt.Errorf("create invitee: %w", err)
	}
	return invitee, nil
}

func (s *inviteeService) ListInvitees(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.InviteeListItem, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	items, total, err := s.inviteeRepo.List(ctx, search, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list invitees: %w", err)
	}
	if items == nil {
		items = []*domain.InviteeListItem{}
	}
	return items, total, nil
}

func (s *inviteeService) ListEventInvitees(ctx context.Context, eventID, callerID string) ([]*domain.Invitee, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.CreatedBy != callerID {
		return nil, domain.ErrForbidden
	}

	invitees, err := s.inviteeRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event invitees: %w", err)
	}
	if invitees == nil {
		invitees = []*domain.Invitee{}
	}
	return invitees, nil
}

func (s *inviteeService) DeleteInvitee(ctx context.Context, inviteeID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.inviteeRepo.Delete(ctx, inviteeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete invitee: %w", err)
	}
	return nil
}

// SendInvitation delivers the invitation email on the organizer's request.
// Unlike the post-confirmation dispatch this is synchronous: the organizer is
// waiting to know whether it went out.
func (s *inviteeService) SendInvitation(ctx context.Context, inviteeID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	invitee, err := s.inviteeRepo.GetByID(ctx, inviteeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get invitee: %w", err)
	}
	if invitee.EventID != eventID {
		return domain.ErrNotFound
	}
	if invitee.Email == nil || *invitee.Email == "" {
		return domain.ErrInvalidInput
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}

	guestName := "Guest"
	if invitee.Name != nil && *invitee.Name != "" {
		guestName = *invitee.Name
	}
	data := &domain.InvitationEmailData{
		Email:         *invitee.Email,
		GuestName:     guestName,
		EventTitle:    event.Title,
		EventLocation: event.Location,
		StartTime:     event.StartTime,
		InvitationURL: invitationURL(s.publicBaseURL, invitee.QRToken),
	}
	if event.Description != nil {
		data.EventDesc = *event.Description
	}

	if err := s.emailService.SendInvitation(ctx, data); err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	if err := s.inviteeRepo.MarkEmailSent(ctx, inviteeID, time.Now()); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}
