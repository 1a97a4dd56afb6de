package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

func TestStorage_CreateUser(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	created := factory.user("Asha@Example.com", "9876543210")
	assert.Equal(t, "asha@example.com", created.Email)
	assert.Equal(t, models.UserStatusActive, created.Status)
	require.Len(t, created.PhoneNumbers, 1)

	got, err := storage.GetUserByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	tests := []struct {
		name           string
		user           models.NewUser
		wantConstraint string
	}{
		{
			name:           "duplicate email differs by case",
			user:           models.NewUser{FirstName: "X", Email: "asha@EXAMPLE.com", PasswordHash: "h"},
			wantConstraint: ConstraintUserEmail,
		},
		{
			name: "duplicate phone with other country code",
			user: models.NewUser{FirstName: "Y", Email: "y@example.com", PasswordHash: "h",
				PhoneNumbers: []models.PhoneNumber{{CountryCode: "+1", PhoneNumber: "9876543210"}}},
			wantConstraint: ConstraintPhoneNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.CreateUser(ctx, tt.user)
			require.ErrorIs(t, err, ErrAlreadyExists)
			assert.Equal(t, tt.wantConstraint, ConstraintName(err))
		})
	}

	// пользователь из неудачной транзакции не должен остаться
	_, err = storage.GetUserByEmail(ctx, "y@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_UpdateUser(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	u := factory.user("upd@example.com", "1111111111")
	phoneID := u.PhoneNumbers[0].ID
	dob := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)

	updated, err := storage.UpdateUser(ctx, u.ID, models.UserPatch{
		LastName: models.Value("Rao"),
		DOB:      models.Value(dob),
		Address:  models.Null[string](),
	}, []models.PhoneChange{
		{Op: models.PhoneOpUpdate, ID: phoneID, PhoneNumber: "2222222222"},
		{Op: models.PhoneOpAdd, PhoneNumber: "3333333333"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.LastName)
	assert.Equal(t, "Rao", *updated.LastName)
	assert.Equal(t, "Test", updated.FirstName)
	assert.Nil(t, updated.Address)
	require.Len(t, updated.PhoneNumbers, 2)
	assert.Equal(t, "2222222222", updated.PhoneNumbers[0].PhoneNumber)
	assert.Equal(t, "+91", updated.PhoneNumbers[1].CountryCode)

	updated, err = storage.UpdateUser(ctx, u.ID, models.UserPatch{}, []models.PhoneChange{
		{Op: models.PhoneOpRemove, ID: phoneID},
	})
	require.NoError(t, err)
	require.Len(t, updated.PhoneNumbers, 1)
	assert.Equal(t, "3333333333", updated.PhoneNumbers[0].PhoneNumber)

	_, err = storage.UpdateUser(ctx, 999999, models.UserPatch{FirstName: models.Value("Nobody")}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_DeleteUsers_Cascades(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	u1 := factory.user("d1@example.com", "4000000001")
	u2 := factory.user("d2@example.com", "4000000002")
	plan := factory.plan("Cascade", 10, 30)
	factory.payment(u1.ID, plan.ID, "order_cascade")
	_, err := storage.InsertActiveQRCode(ctx, u1.ID, "data:", "BEGIN:VCARD")
	require.NoError(t, err)

	n, err := storage.DeleteUsers(ctx, []int64{u1.ID, u2.ID, 424242})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = storage.GetPaymentByOrderID(ctx, "order_cascade")
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := storage.PhoneTaken(ctx, "4000000001", 0)
	require.NoError(t, err)
	assert.False(t, taken)

	assert.ErrorIs(t, storage.DeleteUser(ctx, u1.ID), ErrNotFound)
}
