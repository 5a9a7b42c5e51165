package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jengahacks/backend/internal/models"
)

// Sentinel errors surfaced to handlers for status mapping.
var (
	ErrDuplicateEmail = errors.New("email is already registered")
	ErrTokenTaken     = errors.New("access token is already in use")
	ErrNotFound       = errors.New("registration not found")
	ErrCheckViolation = errors.New("registration rejected by storage constraints")
)

// counterName is the registration_counters row backing the capacity claim.
const counterName = "registrations"

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create admits a registration in one transaction: claim a confirmed slot if
// capacity allows, otherwise mark the row waitlisted, then insert. A rollback
// (duplicate email, constraint failure) releases the claimed slot with it.
func (r *Repository) Create(ctx context.Context, reg *models.Registration, capacity int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback(ctx)

	// Increment-and-compare on the counter row. Concurrent admissions
	// serialize here, so the capacity cutoff is exact.
	const qClaim = `UPDATE registration_counters
		SET confirmed_count = confirmed_count + 1
		WHERE name = $1 AND confirmed_count < $2
		RETURNING confirmed_count`
	var claimed int
	err = tx.QueryRow(ctx, qClaim, counterName, capacity).Scan(&claimed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		reg.IsWaitlist = true
	case err != nil:
		return fmt.Errorf("claim confirmed slot: %w", err)
	default:
		reg.IsWaitlist = false
	}

	const qInsert = `INSERT INTO registrations
		(full_name, email, whatsapp_number, linkedin_url, resume_path, ip_address, access_token, is_waitlist)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, qInsert,
		reg.FullName, reg.Email, reg.WhatsappNumber, reg.LinkedinURL,
		reg.ResumePath, reg.IPAddress, reg.AccessToken, reg.IsWaitlist,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		return translatePgError(err)
	}

	return tx.Commit(ctx)
}

// EmailExists reports whether an email already has a registration.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM registrations WHERE email = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, email).Scan(&exists)
	return exists, err
}

// ConfirmedCount returns the number of confirmed (non-waitlist) registrations.
func (r *Repository) ConfirmedCount(ctx context.Context) (int, error) {
	const q = `SELECT confirmed_count FROM registration_counters WHERE name = $1`
	var count int
	err := r.pool.QueryRow(ctx, q, counterName).Scan(&count)
	return count, err
}

// GetByAccessToken returns the registration owning an access token.
func (r *Repository) GetByAccessToken(ctx context.Context, token string) (*models.Registration, error) {
	const q = `SELECT id, full_name, email, whatsapp_number, linkedin_url, resume_path,
			ip_address, access_token, is_waitlist, created_at
		FROM registrations WHERE access_token = $1`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, token).Scan(
		&reg.ID, &reg.FullName, &reg.Email, &reg.WhatsappNumber, &reg.LinkedinURL,
		&reg.ResumePath, &reg.IPAddress, &reg.AccessToken, &reg.IsWaitlist, &reg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// WaitlistPosition returns the 1-based position of an email on the waitlist,
// ordered by creation time with the row id breaking ties. Nil means the email
// is unknown or not waitlisted; that is not an error.
func (r *Repository) WaitlistPosition(ctx context.Context, email string) (*int, error) {
	const q = `SELECT pos FROM (
			SELECT email, ROW_NUMBER() OVER (ORDER BY created_at, id) AS pos
			FROM registrations WHERE is_waitlist
		) ranked WHERE email = $1`
	var pos int
	err := r.pool.QueryRow(ctx, q, email).Scan(&pos)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// ResumePathReferenced reports whether any registration references the path.
// The resume access endpoint uses this to avoid signing URLs for probes.
func (r *Repository) ResumePathReferenced(ctx context.Context, path string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM registrations WHERE resume_path = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, path).Scan(&exists)
	return exists, err
}

// translatePgError maps constraint failures onto sentinel errors so handlers
// can pick the right status without importing pg internals.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == "registrations_email_unique" {
			return ErrDuplicateEmail
		}
		if pgErr.ConstraintName == "registrations_access_token_unique" {
			return ErrTokenTaken
		}
	case "23514": // check_violation
		return fmt.Errorf("%w: %s", ErrCheckViolation, pgErr.ConstraintName)
	}
	return err
}
