package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerworks/dms-backend/pkg/db/dbtest"
	"github.com/dealerworks/dms-backend/pkg/db/models"
)

type ctxKey struct{}

func TestBaseDBBindsContext(t *testing.T) {
	conn := dbtest.Open(t)
	base := NewBase(conn)
	assert.Same(t, conn, base.db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, conn, base.DB(nil))
}

func TestBaseTxSeesUncommittedRows(t *testing.T) {
	conn := dbtest.Open(t)
	base := NewBase(conn)

	tx := conn.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	bound := base.Tx(tx)
	require.NoError(t, bound.DB(context.Background()).Create(&models.Location{Code: "MAIN", Name: "Main"}).Error)

	var inTx int64
	require.NoError(t, bound.DB(context.Background()).Model(&models.Location{}).Count(&inTx).Error)
	assert.EqualValues(t, 1, inTx)
}
