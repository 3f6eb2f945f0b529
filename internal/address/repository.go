package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetByCustomerID(ctx context.Context, customerID int64) ([]*Address, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)

	Create(ctx context.Context, addr *Address) error
	// Replace deactivates oldID and inserts addr in one transaction.
	Replace(ctx context.Context, oldID uuid.UUID, addr *Address) error
	Deactivate(ctx context.Context, customerID int64, id uuid.UUID) error

	SetDefault(ctx context.Context, customerID int64, addressID uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const addressColumns = `id, customer_id, name, phone, address_line, city, state, pincode, is_default, is_active, created_at`

func scanAddress(s interface{ Scan(...any) error }) (*Address, error) {
	var a Address
	err := s.Scan(
		&a.ID, &a.CustomerID,
		&a.Name, &a.Phone,
		&a.AddressLine, &a.City, &a.State, &a.Pincode,
		&a.IsDefault, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetByCustomerID(ctx context.Context, customerID int64) ([]*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByCustomerID"),
		zap.Int64("customer_id", customerID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE customer_id = $1
		  AND is_active = true
		ORDER BY is_default DESC, created_at DESC
	`, customerID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	res := []*Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// GetByID also returns inactive rows; callers decide whether they are usable.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Address"),
			zap.String("method", "GetByID"),
			zap.Error(err),
		)
		return nil, err
	}
	return a, nil
}

const insertAddress = `
	INSERT INTO addresses (
		id, customer_id,
		name, phone,
		address_line, city, state, pincode,
		is_default, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const clearDefault = `UPDATE addresses SET is_default = false WHERE customer_id = $1 AND is_default = true`

func (r *repository) Create(ctx context.Context, addr *Address) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertTx(ctx, tx, addr)
	})
}

func (r *repository) Replace(ctx context.Context, oldID uuid.UUID, addr *Address) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE addresses SET is_active = false, is_default = false WHERE id = $1 AND customer_id = $2 AND is_active = true`,
			oldID, addr.CustomerID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAddressNotFound
		}
		return insertTx(ctx, tx, addr)
	})
}

func insertTx(ctx context.Context, tx *sql.Tx, addr *Address) error {
	if addr.IsDefault {
		if _, err := tx.ExecContext(ctx, clearDefault, addr.CustomerID); err != nil {
			return fmt.Errorf("clear default address: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, insertAddress,
		addr.ID, addr.CustomerID,
		addr.Name, addr.Phone,
		addr.AddressLine, addr.City, addr.State, addr.Pincode,
		addr.IsDefault, addr.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, customerID int64, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses
		SET is_active = false,
		    is_default = false
		WHERE id = $1 AND customer_id = $2 AND is_active = true
	`, id, customerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func (r *repository) SetDefault(ctx context.Context, customerID int64, addressID uuid.UUID) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, clearDefault, customerID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE addresses
			SET is_default = true
			WHERE customer_id = $1
			  AND id = $2
			  AND is_active = true
		`, customerID, addressID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAddressNotFound
		}
		return nil
	})
}
