package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jengahacks/backend/internal/models"
)

// ErrNotFound is returned when a registration id does not exist.
var ErrNotFound = errors.New("registration not found")

// Repository provides the read-side queries behind the admin dashboard.
// Registrations are immutable, so there are no write methods here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilter narrows the admin registration listing.
type ListFilter struct {
	// Search matches full_name or email, case-insensitively.
	Search string
	// Waitlist filters to waitlisted (true) or confirmed (false) when set.
	Waitlist *bool
	Limit    int
	Offset   int
}

const listColumns = `id, full_name, email, whatsapp_number, linkedin_url, resume_path,
		ip_address, is_waitlist, created_at`

// List returns registrations newest first, with the total matching count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*models.Registration, int, error) {
	var conds []string
	var args []any
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", n, n))
	}
	if f.Waitlist != nil {
		args = append(args, *f.Waitlist)
		conds = append(conds, fmt.Sprintf("is_waitlist = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM registrations"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM registrations%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		listColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, reg)
	}
	return list, total, rows.Err()
}

// GetByID returns a single registration.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	q := fmt.Sprintf("SELECT %s FROM registrations WHERE id = $1", listColumns)
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ExportAll returns every registration in submission order, for CSV export.
func (r *Repository) ExportAll(ctx context.Context) ([]*models.Registration, error) {
	q := fmt.Sprintf("SELECT %s FROM registrations ORDER BY created_at ASC, id ASC", listColumns)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// Stats returns the dashboard aggregate counts.
func (r *Repository) Stats(ctx context.Context, capacity int) (*models.RegistrationStats, error) {
	stats := &models.RegistrationStats{Capacity: capacity}
	const q = `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_waitlist),
			COUNT(*) FILTER (WHERE is_waitlist),
			COUNT(*) FILTER (WHERE created_at >= date_trunc('day', NOW()))
		FROM registrations`
	if err := r.pool.QueryRow(ctx, q).Scan(&stats.Total, &stats.Confirmed, &stats.Waitlisted, &stats.Today); err != nil {
		return nil, err
	}
	const qIncomplete = `SELECT COUNT(*) FROM incomplete_registrations WHERE NOT completed`
	if err := r.pool.QueryRow(ctx, qIncomplete).Scan(&stats.Incomplete); err != nil {
		return nil, err
	}
	return stats, nil
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(
		&reg.ID, &reg.FullName, &reg.Email, &reg.WhatsappNumber, &reg.LinkedinURL,
		&reg.ResumePath, &reg.IPAddress, &reg.IsWaitlist, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
