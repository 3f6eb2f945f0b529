package address

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addressCols = []string{"id", "customer_id", "name", "phone", "address_line", "city", "state", "pincode", "is_default", "is_active", "created_at"}

func sampleAddress(customerID int64, isDefault bool) *Address {
	return &Address{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Name:        "Asha",
		Phone:       "+919876543210",
		AddressLine: "12 MG Road",
		City:        "Pune",
		State:       "MH",
		Pincode:     "411001",
		IsDefault:   isDefault,
		IsActive:    true,
	}
}

func TestRepository_GetByCustomerID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM addresses WHERE customer_id = \$1 AND is_active = true`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(addressCols).
			AddRow(id.String(), int64(5), "Asha", "+919876543210", "12 MG Road", "Pune", "MH", "411001", true, true, time.Now()))

	res, err := NewRepository(db).GetByCustomerID(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, id, res[0].ID)
	assert.True(t, res[0].IsDefault)
}

func TestRepository_GetByID(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM addresses WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

		_, err = NewRepository(db).GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrAddressNotFound)
	})
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Default clears previous default first", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		addr := sampleAddress(5, true)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE addresses SET is_default = false WHERE customer_id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO addresses`).
			WithArgs(addr.ID, int64(5), "Asha", "+919876543210", "12 MG Road", "Pune", "MH", "411001", true, true).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewRepository(db).Create(ctx, addr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO addresses`).WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		err = NewRepository(db).Create(ctx, sampleAddress(5, false))
		assert.ErrorContains(t, err, "insert address")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Replace(t *testing.T) {
	ctx := context.Background()
	oldID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		addr := sampleAddress(5, false)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE addresses SET is_active = false`).
			WithArgs(oldID, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO addresses`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewRepository(db).Replace(ctx, oldID, addr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Foreign or inactive address", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE addresses SET is_active = false`).
			WithArgs(oldID, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = NewRepository(db).Replace(ctx, oldID, sampleAddress(5, false))
		assert.ErrorIs(t, err, ErrAddressNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_SetDefaultAndDeactivate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("SetDefault unknown address rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE addresses SET is_default = false`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE addresses SET is_default = true`).
			WithArgs(int64(5), id).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, NewRepository(db).SetDefault(ctx, 5, id), ErrAddressNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Deactivate success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE addresses SET is_active = false, is_default = false WHERE id = \$1 AND customer_id = \$2`).
			WithArgs(id, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewRepository(db).Deactivate(ctx, 5, id))
	})
}
