package incomplete

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jengahacks/backend/internal/models"
)

// Repository handles incomplete_registrations persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an incomplete registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert merges a partial form capture into the most recent uncompleted row
// for the same contact, or inserts a new row. Two concurrent captures can
// produce two rows; that is acceptable for a follow-up list, so no lock is
// taken.
func (r *Repository) Upsert(ctx context.Context, entry *models.IncompleteRegistration) error {
	const qFind = `SELECT id FROM incomplete_registrations
		WHERE NOT completed AND (email = $1 OR whatsapp_number = $2)
		ORDER BY last_activity_at DESC
		LIMIT 1`
	err := r.pool.QueryRow(ctx, qFind, entry.Email, entry.WhatsappNumber).Scan(&entry.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		const qInsert = `INSERT INTO incomplete_registrations
			(email, whatsapp_number, full_name, form_snapshot, ip_address, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, first_entered_at, last_activity_at`
		return r.pool.QueryRow(ctx, qInsert,
			entry.Email, entry.WhatsappNumber, entry.FullName,
			entry.FormSnapshot, entry.IPAddress, entry.UserAgent,
		).Scan(&entry.ID, &entry.FirstEnteredAt, &entry.LastActivityAt)
	}
	if err != nil {
		return fmt.Errorf("find incomplete registration: %w", err)
	}

	const qUpdate = `UPDATE incomplete_registrations SET
			email = COALESCE($2, email),
			whatsapp_number = COALESCE($3, whatsapp_number),
			full_name = COALESCE($4, full_name),
			form_snapshot = COALESCE($5, form_snapshot),
			ip_address = COALESCE($6, ip_address),
			user_agent = COALESCE($7, user_agent),
			last_activity_at = NOW()
		WHERE id = $1
		RETURNING first_entered_at, last_activity_at`
	return r.pool.QueryRow(ctx, qUpdate, entry.ID,
		entry.Email, entry.WhatsappNumber, entry.FullName,
		entry.FormSnapshot, entry.IPAddress, entry.UserAgent,
	).Scan(&entry.FirstEnteredAt, &entry.LastActivityAt)
}

// CompleteByContact marks every uncompleted row matching the email or the
// WhatsApp number as completed and returns how many rows flipped. Matching
// on either contact deliberately completes all of a person's traces, even
// ones logged under just one identifier.
func (r *Repository) CompleteByContact(ctx context.Context, email, whatsapp string) (int64, error) {
	const q = `UPDATE incomplete_registrations
		SET completed = TRUE, completed_at = NOW(), last_activity_at = NOW()
		WHERE NOT completed AND (($1 <> '' AND email = $1) OR ($2 <> '' AND whatsapp_number = $2))`
	tag, err := r.pool.Exec(ctx, q, email, whatsapp)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List returns incomplete registrations for the admin dashboard, most recent
// activity first, with the total row count for pagination.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*models.IncompleteRegistration, int, error) {
	const qCount = `SELECT COUNT(*) FROM incomplete_registrations`
	var total int
	if err := r.pool.QueryRow(ctx, qCount).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT id, email, whatsapp_number, full_name, form_snapshot,
			ip_address, user_agent, completed, completed_at, first_entered_at, last_activity_at
		FROM incomplete_registrations
		ORDER BY last_activity_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*models.IncompleteRegistration
	for rows.Next() {
		var entry models.IncompleteRegistration
		if err := rows.Scan(
			&entry.ID, &entry.Email, &entry.WhatsappNumber, &entry.FullName, &entry.FormSnapshot,
			&entry.IPAddress, &entry.UserAgent, &entry.Completed, &entry.CompletedAt,
			&entry.FirstEnteredAt, &entry.LastActivityAt,
		); err != nil {
			return nil, 0, err
		}
		list = append(list, &entry)
	}
	return list, total, rows.Err()
}
