package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dealerworks/dms-backend/pkg/db"
	"github.com/dealerworks/dms-backend/pkg/db/dbtest"
)

func insertLocation(tx *gorm.DB, code string) error {
	return tx.Exec(`INSERT INTO locations (id, code, name) VALUES (?, ?, ?)`, uuid.NewString(), code, code).Error
}

func countLocations(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Table("locations").Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client, conn := dbtest.OpenClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return insertLocation(tx, "MAIN")
	}))
	assert.EqualValues(t, 1, countLocations(t, conn))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := insertLocation(tx, "BODY"); err != nil {
			return err
		}
		return errors.New("receipt rejected")
	})
	require.EqualError(t, err, "receipt rejected")
	assert.EqualValues(t, 1, countLocations(t, conn))
}

func TestWithTxJoinsTransactionFromContext(t *testing.T) {
	client, conn := dbtest.OpenClient(t)

	err := client.WithTx(context.Background(), func(outer *gorm.DB) error {
		if err := insertLocation(outer, "MAIN"); err != nil {
			return err
		}
		inner := db.ContextWithTx(context.Background(), outer)
		return client.WithTx(inner, func(tx *gorm.DB) error {
			// The joined tx sees the outer insert before commit.
			var n int64
			if err := tx.Table("locations").Count(&n).Error; err != nil {
				return err
			}
			if n != 1 {
				return errors.New("outer insert not visible")
			}
			return insertLocation(tx, "BODY")
		})
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, countLocations(t, conn))
}

func TestWithTxInnerFailureRollsBackOuter(t *testing.T) {
	client, conn := dbtest.OpenClient(t)

	err := client.WithTx(context.Background(), func(outer *gorm.DB) error {
		if err := insertLocation(outer, "MAIN"); err != nil {
			return err
		}
		return client.WithTx(db.ContextWithTx(context.Background(), outer), func(tx *gorm.DB) error {
			if err := insertLocation(tx, "BODY"); err != nil {
				return err
			}
			return errors.New("stock guard failed")
		})
	})
	require.Error(t, err)
	assert.Zero(t, countLocations(t, conn))
}

func TestTxFromContext(t *testing.T) {
	_, ok := db.TxFromContext(context.Background())
	assert.False(t, ok)

	_, conn := dbtest.OpenClient(t)
	tx, ok := db.TxFromContext(db.ContextWithTx(context.Background(), conn))
	require.True(t, ok)
	assert.Same(t, conn, tx)

	_, ok = db.TxFromContext(db.ContextWithTx(context.Background(), nil))
	assert.False(t, ok)
}

func TestPing(t *testing.T) {
	client, _ := dbtest.OpenClient(t)
	require.NoError(t, client.Ping(context.Background()))
}
