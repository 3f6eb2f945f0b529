package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	// VerifyPhone stores phone on the customer and marks it verified.
	VerifyPhone(ctx context.Context, id int64, phone string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const customerColumns = `id, name, email, phone, password_hash, role, mobile_verified, created_at, updated_at`

func scanCustomer(s interface{ Scan(...any) error }) (*Customer, error) {
	var c Customer
	var phone sql.NullString
	err := s.Scan(
		&c.ID, &c.Name, &c.Email, &phone,
		&c.PasswordHash, &c.Role, &c.MobileVerified,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	return &c, nil
}

// classifyUnique maps a unique violation to the column it hit.
func classifyUnique(err error) error {
	if !db.IsUniqueViolation(err) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint == "customers_phone_key" {
		return ErrPhoneExists
	}
	return ErrEmailExists
}

func (r *repository) Create(ctx context.Context, c *Customer) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Customer"),
		zap.String("method", "Create"),
	)

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, email, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, mobile_verified, created_at, updated_at
	`, c.Name, c.Email, c.Phone, c.PasswordHash, c.Role).
		Scan(&c.ID, &c.MobileVerified, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		err = classifyUnique(err)
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrPhoneExists) {
			return err
		}
		log.Error("insert customer failed", zap.Error(err))
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *repository) getOne(ctx context.Context, where string, arg any) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE `+where+` LIMIT 1`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *repository) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	return r.getOne(ctx, `phone = $1`, phone)
}

func (r *repository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET password_hash = $2, updated_at = NOW()
		WHERE email = $1
	`, email, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *repository) VerifyPhone(ctx context.Context, id int64, phone string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET phone = $2, mobile_verified = true, updated_at = NOW()
		WHERE id = $1
	`, id, phone)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPhoneExists
		}
		return fmt.Errorf("verify phone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
