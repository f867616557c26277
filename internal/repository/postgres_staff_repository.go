package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicalink/staff-backend/internal/domain"
)

// PostgresStaffRepository implements StaffRepository using PostgreSQL
type PostgresStaffRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStaffRepository creates a new PostgresStaffRepository
func NewPostgresStaffRepository(pool *pgxpool.Pool) *PostgresStaffRepository {
	return &PostgresStaffRepository{pool: pool}
}

const staffColumns = `id, full_name, email, password_hash, role, gender, date_of_birth, deleted_at, created_at, updated_at`

func scanStaff(row pgx.Row) (*domain.StaffAccount, error) {
	staff := &domain.StaffAccount{}
	err := row.Scan(
		&staff.ID,
		&staff.FullName,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.Gender,
		&staff.DateOfBirth,
		&staff.DeletedAt,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return staff, nil
}

// Create inserts a new staff account
func (r *PostgresStaffRepository) Create(ctx context.Context, staff *domain.StaffAccount) error {
	query := `
		INSERT INTO staff_accounts (id, full_name, email, password_hash, role, gender, date_of_birth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		staff.ID,
		staff.FullName,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
		staff.Gender,
		staff.DateOfBirth,
		staff.CreatedAt,
		staff.UpdatedAt,
	)
	return err
}

// GetByID retrieves an active staff account by ID
func (r *PostgresStaffRepository) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM staff_accounts
		WHERE id = $1 AND deleted_at IS NULL
	`, staffColumns)
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

// GetByIDIncludeDeleted retrieves a staff account by ID whether or not it was
// soft-deleted
func (r *PostgresStaffRepository) GetByIDIncludeDeleted(ctx context.Context, id string) (*domain.StaffAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM staff_accounts
		WHERE id = $1
	`, staffColumns)
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves an active staff account by email
func (r *PostgresStaffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM staff_accounts
		WHERE email = $1 AND deleted_at IS NULL
	`, staffColumns)
	return scanStaff(r.pool.QueryRow(ctx, query, email))
}

// ExistsByEmail checks if an active staff account exists with the given email
func (r *PostgresStaffRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM staff_accounts WHERE email = $1 AND deleted_at IS NULL)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

// Update updates a staff account's profile fields
func (r *PostgresStaffRepository) Update(ctx context.Context, staff *domain.StaffAccount) error {
	query := `
		UPDATE staff_accounts
		SET full_name = $2, email = $3, role = $4, gender = $5, date_of_birth = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`
	staff.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx, query,
		staff.ID,
		staff.FullName,
		staff.Email,
		staff.Role,
		staff.Gender,
		staff.DateOfBirth,
		staff.UpdatedAt,
	)
	return err
}

// UpdatePassword replaces the stored password hash
func (r *PostgresStaffRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE staff_accounts
		SET password_hash = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, id, passwordHash, time.Now())
	return err
}

// SoftDelete marks a staff account deleted without removing the row
func (r *PostgresStaffRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE staff_accounts
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, id, time.Now())
	return err
}

// Restore clears the deletion mark of a soft-deleted staff account
func (r *PostgresStaffRepository) Restore(ctx context.Context, id string) error {
	query := `
		UPDATE staff_accounts
		SET deleted_at = NULL, updated_at = $2
		WHERE id = $1 AND deleted_at IS NOT NULL
	`
	_, err := r.pool.Exec(ctx, query, id, time.Now())
	return err
}

// List retrieves active staff accounts with optional filters and pagination,
// newest first, along with the total count for the filter.
func (r *PostgresStaffRepository) List(ctx context.Context, filter ListFilter) ([]*domain.StaffAccount, int64, error) {
	where := `WHERE deleted_at IS NULL`
	args := []interface{}{}
	argn := 0

	if filter.Role != "" {
		argn++
		where += fmt.Sprintf(` AND role = $%d`, argn)
		args = append(args, filter.Role)
	}
	if filter.Gender != "" {
		argn++
		where += fmt.Sprintf(` AND gender = $%d`, argn)
		args = append(args, filter.Gender)
	}
	if filter.Search != "" {
		argn++
		where += fmt.Sprintf(` AND (full_name ILIKE $%d OR email ILIKE $%d)`, argn, argn)
		args = append(args, "%"+filter.Search+"%")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM staff_accounts ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	query := fmt.Sprintf(`
		SELECT %s
		FROM staff_accounts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, staffColumns, where, argn+1, argn+2)
	args = append(args, filter.Limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*domain.StaffAccount
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, staff)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// CountByRole counts active staff accounts holding the given role
func (r *PostgresStaffRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	query := `SELECT COUNT(*) FROM staff_accounts WHERE role = $1 AND deleted_at IS NULL`
	var count int64
	err := r.pool.QueryRow(ctx, query, role).Scan(&count)
	return count, err
}

// CountCreatedSince counts active staff accounts created at or after the given time
func (r *PostgresStaffRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM staff_accounts WHERE created_at >= $1 AND deleted_at IS NULL`
	var count int64
	err := r.pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}
