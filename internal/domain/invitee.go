package domain

import (
	"context"
	"fmt"
	"time"
)

// InviteeStatus is the derived lifecycle state of an invitee.
type InviteeStatus string

const (
	StatusPending   InviteeStatus = "pending"
	StatusConfirmed InviteeStatus = "confirmed"
	StatusCheckedIn InviteeStatus = "checked_in"
)

// Invitee represents a phone-number-identified guest attached to one event.
// swagger:model Invitee
type Invitee struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	QRToken     string     `json:"qr_code"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewInvitee returns a new pending Invitee. ID is set by the repository on create.
func NewInvitee(eventID, phone, qrToken string, email, name, notes *string, createdAt time.Time) *Invitee {
	return &Invitee{
		EventID:   eventID,
		Phone:     phone,
		QRToken:   qrToken,
		Email:     email,
		Name:      name,
		Notes:     notes,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Status derives the lifecycle state from the confirmed/checked-in flags.
// A checked-in invitee is always also confirmed.
func (i *Invitee) Status() InviteeStatus {
	switch {
	case i.CheckedIn:
		return StatusCheckedIn
	case i.Confirmed:
		return StatusConfirmed
	default:
		return StatusPending
	}
}

// ValidateState checks the flag/timestamp pairings and the checked-in implies
// confirmed rule. Rows are only mutated through guarded updates, so a
// violation here means corrupted storage.
func (i *Invitee) ValidateState() error {
	if i.CheckedIn && !i.Confirmed {
		return fmt.Errorf("invitee %s: checked in but not confirmed", i.ID)
	}
	if i.Confirmed != (i.ConfirmedAt != nil) {
		return fmt.Errorf("invitee %s: confirmed flag and confirmed_at disagree", i.ID)
	}
	if i.CheckedIn != (i.CheckedInAt != nil) {
		return fmt.Errorf("invitee %s: checked_in flag and checked_in_at disagree", i.ID)
	}
	return nil
}

// InviteeWithEvent bundles an invitee with its event, for public lookups
// (confirmation page pre-check and invitation card retrieval).
type InviteeWithEvent struct {
	Invitee *Invitee `json:"invitee"`
	Event   *Event   `json:"event"`
}

// InviteeListItem is a row in the organizer's global invitee listing.
type InviteeListItem struct {
	Invitee
	EventTitle string `json:"event_title"`
}

// InviteeRepository defines storage operations for invitees. Confirm and
// CheckIn are compare-and-swap updates: they succeed only if the guard column
// was still false at write time and return ErrConflict when the update
// matched zero rows. Two concurrent calls on the same row never both succeed.
type InviteeRepository interface {
	Create(ctx context.Context, inv *Invitee) error
	GetByID(ctx context.Context, id string) (*Invitee, error)
	GetByEventAndPhone(ctx context.Context, eventID, phone string) (*Invitee, error)
	GetByQRToken(ctx context.Context, qrToken string) (*Invitee, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Invitee, error)
	List(ctx context.Context, search string, params PaginationParams) ([]*InviteeListItem, int, error)
	Delete(ctx context.Context, id string) error

	// Confirm sets confirmed=true and confirmed_at, and updates email/name
	// when non-nil, guarded by confirmed=false.
	Confirm(ctx context.Context, id string, email, name *string, at time.Time) (*Invitee, error)
	// CheckIn sets checked_in=true and checked_in_at, guarded by checked_in=false.
	CheckIn(ctx context.Context, id string, at time.Time) (*Invitee, error)

	// SetConfirmed is the unguarded administrative override. Setting
	// confirmed=false also clears checked_in and checked_in_at in the same
	// statement so a check-in never outlives its confirmation.
	SetConfirmed(ctx context.Context, id string, confirmed bool, email, name *string, at time.Time) (*Invitee, error)
	// SetCheckedIn is the unguarded administrative override for check-in.
	SetCheckedIn(ctx context.Context, id string, checkedIn bool, at time.Time) (*Invitee, error)

	MarkEmailSent(ctx context.Context, id string, at time.Time) error
}

// QRTokenGenerator produces the opaque per-invitee token encoded in QR codes.
type QRTokenGenerator interface {
	Generate() (string, error)
}

// ConfirmationService defines the public, unauthenticated confirmation flow.
type ConfirmationService interface {
	// Confirm marks the invitee identified by (eventID, phone) as confirmed.
	// Phone numbers not on the pre-registered list can never self-confirm.
	// Exactly one of several concurrent calls succeeds; the rest receive
	// ErrAlreadyConfirmed.
	Confirm(ctx context.Context, eventID, phone string, email, name *string) (*Invitee, error)
	// CheckByPhone is the read-only pre-confirmation lookup.
	CheckByPhone(ctx context.Context, eventID, phone string) (*InviteeWithEvent, error)
	// LookupByToken resolves a QR token to its invitee and event (invitation card).
	LookupByToken(ctx context.Context, qrToken string) (*InviteeWithEvent, error)
}

// CheckInService defines door-side and administrative check-in operations.
type CheckInService interface {
	// CheckIn marks a confirmed invitee as present, located by phone or QR
	// token within the event. Exactly one of phone/qrToken must be given.
	// A token issued under a different event is rejected with ErrNotFound.
	CheckIn(ctx context.Context, eventID, phone, qrToken string) (*Invitee, error)
	// SetCheckedIn toggles check-in directly (organizer override). It skips
	// the AlreadyCheckedIn guard but still refuses to check in an
	// unconfirmed invitee.
	SetCheckedIn(ctx context.Context, inviteeID string, checkedIn bool) (*Invitee, error)
	// SetConfirmed toggles confirmation directly (organizer override).
	// Unconfirming cascades: checked_in is cleared in the same update.
	SetConfirmed(ctx context.Context, inviteeID string, confirmed bool, email, name *string) (*Invitee, error)
}

// InviteeService defines organizer-facing invitee management.
type InviteeService interface {
	CreateInvitee(ctx context.Context, eventID, phone string, email, name, notes *string) (*Invitee, error)
	ListInvitees(ctx context.Context, search string, params PaginationParams) ([]*InviteeListItem, int, error)
	ListEventInvitees(ctx context.Context, eventID, callerID string) ([]*Invitee, error)
	DeleteInvitee(ctx context.Context, inviteeID string) error
	// SendInvitation emails the invitation with the QR token to the invitee.
	// The invitee must have an email address on record.
	SendInvitation(ctx context.Context, inviteeID, eventID string) error
}
