package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tubira/affiliates-api/internal/models"
)

// AdminRepository defines the interface for admin account operations.
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	List(ctx context.Context) ([]*models.Admin, error)
	Count(ctx context.Context) (int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.AdminRole) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type adminRepo struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new admin repository.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepo{pool: pool}
}

const adminColumns = `id, email, password_hash, name, role, created_by, last_login_at, created_at`

// scanAdmin reads an admin row. Accounts created before roles were
// introduced carry a NULL role and are treated as b2b_agent.
func scanAdmin(row pgx.Row) (*models.Admin, error) {
	var (
		a    models.Admin
		role *models.AdminRole
	)
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Name,
		&role,
		&a.CreatedBy,
		&a.LastLoginAt,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if role != nil {
		a.Role = *role
	} else {
		a.Role = models.RoleB2BAgent
	}
	return &a, nil
}

func (r *adminRepo) Create(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (id, email, password_hash, name, role, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	admin.Email = strings.ToLower(admin.Email)

	return r.pool.QueryRow(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.Name,
		admin.Role,
		admin.CreatedBy,
	).Scan(&admin.CreatedAt)
}

func (r *adminRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdmin(r.pool.QueryRow(ctx, query, id))
}

func (r *adminRepo) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`
	return scanAdmin(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *adminRepo) List(ctx context.Context) ([]*models.Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *adminRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

func (r *adminRepo) UpdateRole(ctx context.Context, id uuid.UUID, role models.AdminRole) error {
	_, err := r.pool.Exec(ctx, `UPDATE admins SET role = $2 WHERE id = $1`, id, role)
	return err
}

func (r *adminRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE admins SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}

func (r *adminRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE admins SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *adminRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	return err
}

// Compile-time check to ensure adminRepo implements AdminRepository.
var _ AdminRepository = (*adminRepo)(nil)
