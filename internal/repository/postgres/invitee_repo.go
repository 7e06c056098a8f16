package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"guestlist/internal/domain"
)

const inviteeColumns = `id, event_id, phone, email, name, notes, qr_token,
		confirmed, confirmed_at, checked_in, checked_in_at,
		email_sent, email_sent_at, created_at, updated_at`

type inviteeRepository struct {
	DB *sql.DB
}

// NewInviteeRepository returns a domain.InviteeRepository implemented with Postgres.
// The confirm/check-in updates are single guarded statements; their WHERE
// clause on the guard column is what makes concurrent transitions safe.
func NewInviteeRepository(db *sql.DB) domain.InviteeRepository {
	return &inviteeRepository{DB: db}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitee(s rowScanner) (*domain.Invitee, error) {
	inv := &domain.Invitee{}
	var email, name, notes sql.NullString
	var confirmedAt, checkedInAt, emailSentAt sql.NullTime
	err := s.Scan(
		&inv.ID, &inv.EventID, &inv.Phone, &email, &name, &notes, &inv.QRToken,
		&inv.Confirmed, &confirmedAt, &inv.CheckedIn, &checkedInAt,
		&inv.EmailSent, &emailSentAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		inv.Email = &email.String
	}
	if name.Valid {
		inv.Name = &name.String
	}
	if notes.Valid {
		inv.Notes = &notes.String
	}
	if confirmedAt.Valid {
		inv.ConfirmedAt = &confirmedAt.Time
	}
	if checkedInAt.Valid {
		inv.CheckedInAt = &checkedInAt.Time
	}
	if emailSentAt.Valid {
		inv.EmailSentAt = &emailSentAt.Time
	}
	return inv, nil
}

// mapUniqueViolation translates Postgres unique violations into domain errors.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "qr_token") {
			return domain.ErrDuplicateQRToken
		}
		return domain.ErrDuplicatePhone
	}
	return err
}

func (r *inviteeRepository) Create(ctx context.Context, inv *domain.Invitee) error {
	query := `
		INSERT INTO invitees (event_id, phone, email, name, notes, qr_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		inv.EventID, inv.Phone, inv.Email, inv.Name, inv.Notes, inv.QRToken,
		inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *inviteeRepository) GetByID(ctx context.Context, id string) (*domain.Invitee, error) {
	query := `SELECT ` + inviteeColumns + ` FROM invitees WHERE id = $1`
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteeRepository) GetByEventAndPhone(ctx context.Context, eventID, phone string) (*domain.Invitee, error) {
	query := `SELECT ` + inviteeColumns + ` FROM invitees WHERE event_id = $1 AND phone = $2`
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, eventID, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteeRepository) GetByQRToken(ctx context.Context, qrToken string) (*domain.Invitee, error) {
	query := `SELECT ` + inviteeColumns + ` FROM invitees WHERE qr_token = $1`
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, qrToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteeRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Invitee, error) {
	query := `SELECT ` + inviteeColumns + ` FROM invitees WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitees := make([]*domain.Invitee, 0)
	for rows.Next() {
		inv, err := scanInvitee(rows)
		if err != nil {
			return nil, err
		}
		invitees = append(invitees, inv)
	}
	return invitees, rows.Err()
}

func (r *inviteeRepository) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.InviteeListItem, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = `WHERE i.phone ILIKE $1 OR i.name ILIKE $1 OR i.email ILIKE $1 OR e.title ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM invitees i JOIN events e ON i.event_id = e.id ` + where
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT i.id, i.event_id, i.phone, i.email, i.name, i.notes, i.qr_token,
			i.confirmed, i.confirmed_at, i.checked_in, i.checked_in_at,
			i.email_sent, i.email_sent_at, i.created_at, i.updated_at, e.title
		FROM invitees i
		JOIN events e ON i.event_id = e.id ` + where + `
		ORDER BY i.created_at DESC ` +
		fmt.Sprintf("LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]*domain.InviteeListItem, 0)
	for rows.Next() {
		item := &domain.InviteeListItem{}
		var email, name, notes sql.NullString
		var confirmedAt, checkedInAt, emailSentAt sql.NullTime
		err := rows.Scan(
			&item.ID, &item.EventID, &item.Phone, &email, &name, &notes, &item.QRToken,
			&item.Confirmed, &confirmedAt, &item.CheckedIn, &checkedInAt,
			&item.EmailSent, &emailSentAt, &item.CreatedAt, &item.UpdatedAt,
			&item.EventTitle,
		)
		if err != nil {
			return nil, 0, err
		}
		if email.Valid {
			item.Email = &email.String
		}
		if name.Valid {
			item.Name = &name.String
		}
		if notes.Valid {
			item.Notes = &notes.String
		}
		if confirmedAt.Valid {
			item.ConfirmedAt = &confirmedAt.Time
		}
		if checkedInAt.Valid {
			item.CheckedInAt = &checkedInAt.Time
		}
		if emailSentAt.Valid {
			item.EmailSentAt = &emailSentAt.Time
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *inviteeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM invitees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Confirm is the compare-and-swap transition to confirmed. The guard
// `confirmed = FALSE` makes racing confirmations resolve to exactly one
// winner; losers get ErrConflict and must re-read.
func (r *inviteeRepository) Confirm(ctx context.Context, id string, email, name *string, at time.Time) (*domain.Invitee, error) {
	query := `
		UPDATE invitees
		SET confirmed = TRUE,
			confirmed_at = $2,
			email = COALESCE($3, email),
			name = COALESCE($4, name),
			updated_at = $2
		WHERE id = $1 AND confirmed = FALSE
		RETURNING ` + inviteeColumns
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, id, at, email, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return inv, nil
}

// CheckIn is the compare-and-swap transition to checked-in, guarded by
// `checked_in = FALSE`. Concurrent scans of the same guest yield one success.
func (r *inviteeRepository) CheckIn(ctx context.Context, id string, at time.Time) (*domain.Invitee, error) {
	query := `
		UPDATE invitees
		SET checked_in = TRUE,
			checked_in_at = $2,
			updated_at = $2
		WHERE id = $1 AND checked_in = FALSE
		RETURNING ` + inviteeColumns
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteeRepository) SetConfirmed(ctx context.Context, id string, confirmed bool, email, name *string, at time.Time) (*domain.Invitee, error) {
	var query string
	if confirmed {
		query = `
			UPDATE invitees
			SET confirmed = TRUE,
				confirmed_at = $2,
				email = COALESCE($3, email),
				name = COALESCE($4, name),
				updated_at = $2
			WHERE id = $1
			RETURNING ` + inviteeColumns
	} else {
		// Unconfirming cascades: the check-in is cleared in the same statement.
		query = `
			UPDATE invitees
			SET confirmed = FALSE,
				confirmed_at = NULL,
				checked_in = FALSE,
				checked_in_at = NULL,
				email = COALESCE($3, email),
				name = COALESCE($4, name),
				updated_at = $2
			WHERE id = $1
			RETURNING ` + inviteeColumns
	}
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, id, at, email, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteeRepository) SetCheckedIn(ctx context.Context, id string, checkedIn bool, at time.Time) (*domain.Invitee, error) {
	var query string
	if checkedIn {
		// The confirmed = TRUE guard keeps checked_in implies confirmed even
		// if a concurrent unconfirm lands between the caller's read and here.
		query = `
			UPDATE invitees
			SET checked_in = TRUE,
				checked_in_at = $2,
				updated_at = $2
			WHERE id = $1 AND confirmed = TRUE
			RETURNING ` + inviteeColumns
	} else {
		query = `
			UPDATE invitees
			SET checked_in = FALSE,
				checked_in_at = NULL,
				updated_at = $2
			WHERE id = $1
			RETURNING ` + inviteeColumns
	}
	inv, err := scanInvitee(r.DB.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Zero rows means the id is unknown, or (when setting true) the
			// invitee is not confirmed. Callers re-read to tell them apart.
			if checkedIn {
				return nil, domain.ErrConflict
			}
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteeRepository) MarkEmailSent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE invitees
		SET email_sent = TRUE, email_sent_at = $2, updated_at = $2
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
