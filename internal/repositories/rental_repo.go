package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkrental/internal/common"
	"linkrental/internal/lifecycle"
	"linkrental/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LiveSlugIndex is the partial unique index that keeps slugs unique among non-rejected rows.
const LiveSlugIndex = "rental_requests_live_slug_idx"

const uniqueViolation = "23505"

const rentalColumns = `id, slug, business_name, contact_email, contact_phone, duration, duration_type, duration_value, price, business_data, status, request_date, activation_date, expiration_date, decision_date, created_at, updated_at`

// DBTX is the subset of pgxpool.Pool used by repositories; pgxmock pools satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RentalRepository interface {
	Create(ctx context.Context, rental *models.RentalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RentalRequest, error)
	GetBySlug(ctx context.Context, slug string) (*models.RentalRequest, error)
	ListByStatus(ctx context.Context, statuses []models.RentalStatus) ([]*models.RentalRequest, error)
	Transition(ctx context.Context, id uuid.UUID, t lifecycle.Transition) (*models.RentalRequest, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	CountByEffectiveStatus(ctx context.Context, now time.Time) (map[models.RentalStatus]int64, error)
	ListStalePending(ctx context.Context, requestedBefore time.Time) ([]*models.RentalRequest, error)
}

type rentalRepo struct {
	db DBTX
}

func NewRentalRepository(db DBTX) RentalRepository {
	return &rentalRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*models.RentalRequest, error) {
	r := &models.RentalRequest{}
	err := row.Scan(
		&r.ID,
		&r.Slug,
		&r.BusinessName,
		&r.ContactEmail,
		&r.ContactPhone,
		&r.Duration,
		&r.DurationType,
		&r.DurationValue,
		&r.Price,
		&r.BusinessData,
		&r.Status,
		&r.RequestDate,
		&r.ActivationDate,
		&r.ExpirationDate,
		&r.DecisionDate,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rentalRepo) Create(ctx context.Context, rental *models.RentalRequest) error {
	query := `
		INSERT INTO rental_requests (id, slug, business_name, contact_email, contact_phone, duration, duration_type, duration_value, price, business_data, status, request_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		rental.ID,
		rental.Slug,
		rental.BusinessName,
		rental.ContactEmail,
		rental.ContactPhone,
		rental.Duration,
		rental.DurationType,
		rental.DurationValue,
		rental.Price,
		rental.BusinessData,
		rental.Status,
		rental.RequestDate,
	).Scan(&rental.CreatedAt, &rental.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == LiveSlugIndex {
			return fmt.Errorf("create rental %q: %w", rental.Slug, common.ErrSlugTaken)
		}
		return fmt.Errorf("create rental: %w", err)
	}
	return nil
}

func (r *rentalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RentalRequest, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rental_requests
		WHERE id = $1
	`
	rental, err := scanRental(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rental %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("get rental: %w", err)
	}
	return rental, nil
}

// GetBySlug prefers the live holder of a slug over rejected rows that released it.
func (r *rentalRepo) GetBySlug(ctx context.Context, slug string) (*models.RentalRequest, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rental_requests
		WHERE slug = $1
		ORDER BY (status = 'rejected'), request_date DESC
		LIMIT 1
	`
	rental, err := scanRental(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rental slug %q: %w", slug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("get rental by slug: %w", err)
	}
	return rental, nil
}

// ListByStatus filters on the stored status; an empty filter lists everything, newest first.
func (r *rentalRepo) ListByStatus(ctx context.Context, statuses []models.RentalStatus) ([]*models.RentalRequest, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) == 0 {
		query := `
		SELECT ` + rentalColumns + `
		FROM rental_requests
		ORDER BY request_date DESC
	`
		rows, err = r.db.Query(ctx, query)
	} else {
		filter := make([]string, len(statuses))
		for i, s := range statuses {
			filter[i] = string(s)
		}
		query := `
		SELECT ` + rentalColumns + `
		FROM rental_requests
		WHERE status = ANY($1)
		ORDER BY request_date DESC
	`
		rows, err = r.db.Query(ctx, query, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return collectRentals(rows)
}

// Transition applies t only if the row still holds t.From, so concurrent decisions on one id
// cannot both succeed.
func (r *rentalRepo) Transition(ctx context.Context, id uuid.UUID, t lifecycle.Transition) (*models.RentalRequest, error) {
	query := `
		UPDATE rental_requests
		SET status = $1, activation_date = $2, expiration_date = $3, decision_date = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
		RETURNING ` + rentalColumns + `
	`
	rental, err := scanRental(r.db.QueryRow(ctx, query, t.To, t.ActivationDate, t.ExpirationDate, t.DecisionDate, id, t.From))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rental %s no longer %s: %w", id, t.From, common.ErrStaleState)
		}
		return nil, fmt.Errorf("transition rental: %w", err)
	}
	return rental, nil
}

// MarkExpired rewrites the stored status of lapsed active rentals. Readers never depend on it.
func (r *rentalRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE rental_requests
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expiration_date <= $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("mark expired rentals: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *rentalRepo) CountByEffectiveStatus(ctx context.Context, now time.Time) (map[models.RentalStatus]int64, error) {
	query := `
		SELECT CASE WHEN status = 'active' AND expiration_date <= $1 THEN 'expired' ELSE status END AS effective_status, COUNT(*)
		FROM rental_requests
		GROUP BY 1
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("count rentals: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RentalStatus]int64, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan rental count: %w", err)
		}
		counts[models.RentalStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rental counts: %w", err)
	}
	return counts, nil
}

func (r *rentalRepo) ListStalePending(ctx context.Context, requestedBefore time.Time) ([]*models.RentalRequest, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rental_requests
		WHERE status = 'pending' AND request_date < $1
		ORDER BY request_date ASC
	`
	rows, err := r.db.Query(ctx, query, requestedBefore)
	if err != nil {
		return nil, fmt.Errorf("list stale pending rentals: %w", err)
	}
	return collectRentals(rows)
}

func collectRentals(rows pgx.Rows) ([]*models.RentalRequest, error) {
	defer rows.Close()

	rentals := []*models.RentalRequest{}
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rental: %w", err)
		}
		rentals = append(rentals, rental)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rentals: %w", err)
	}
	return rentals, nil
}
