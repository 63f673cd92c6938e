package customers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerworks/dms-backend/pkg/db/dbtest"
	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/pagination"
)

func TestCreateCustomer(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	phone := " 555-0100 "
	got, err := svc.Create(context.Background(), CreateInput{FirstName: "Ana", LastName: "Silva", Email: " Ana.Silva@Example.com ", Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "ana.silva@example.com", got.Email)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "555-0100", *got.Phone)

	_, err = svc.Create(context.Background(), CreateInput{FirstName: "A", LastName: "S", Email: "ANA.SILVA@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(context.Background(), CreateInput{FirstName: "A", LastName: "S", Email: "not-an-email"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(context.Background(), CreateInput{FirstName: " ", LastName: "S", Email: "x@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetCustomerIncludesLoyalty(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	plain, err := svc.Create(context.Background(), CreateInput{FirstName: "Bo", LastName: "Lee", Email: "bo@example.com"})
	require.NoError(t, err)
	got, err := svc.Get(context.Background(), plain.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LoyaltyTier)

	require.NoError(t, conn.Create(&models.LoyaltyAccount{
		CustomerID:     plain.ID,
		Tier:           enums.LoyaltyTierSilver,
		CurrentPoints:  1200,
		EnrollmentDate: time.Now().UTC(),
	}).Error)
	got, err = svc.Get(context.Background(), plain.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LoyaltyTier)
	assert.Equal(t, enums.LoyaltyTierSilver, *got.LoyaltyTier)
	assert.Equal(t, 1200, *got.LoyaltyPoints)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListCustomersSearchAndPage(t *testing.T) {
	conn := dbtest.Open(t)
	raw, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	svc := raw.(*service)
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, c := range []CreateInput{
		{FirstName: "Carla", LastName: "Diaz", Email: "carla@example.com"},
		{FirstName: "Carl", LastName: "Evans", Email: "carl@example.com"},
		{FirstName: "Dana", LastName: "Fox", Email: "dana@example.com"},
	} {
		_, err := svc.Create(context.Background(), c)
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), "carl", pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Carl", page.Items[0].FirstName)
	require.NotEmpty(t, page.NextCursor)

	page, err = svc.List(context.Background(), "carl", pagination.Params{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Carla", page.Items[0].FirstName)
	assert.Empty(t, page.NextCursor)
}
