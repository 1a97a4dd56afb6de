package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/membership-service/internal/migrations"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// setupTestStorage поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))

	return storage
}

// testDataFactory создаёт тестовые записи через публичные методы хранилища.
type testDataFactory struct {
	t       *testing.T
	storage *Storage
}

func newTestDataFactory(t *testing.T, storage *Storage) *testDataFactory {
	return &testDataFactory{t: t, storage: storage}
}

func (f *testDataFactory) user(email, phone string) *models.User {
	u, err := f.storage.CreateUser(context.Background(), models.NewUser{
		FirstName:    "Test",
		Email:        email,
		PasswordHash: "hash",
		PhoneNumbers: []models.PhoneNumber{{CountryCode: "+91", PhoneNumber: phone}},
	})
	require.NoError(f.t, err)
	return u
}

func (f *testDataFactory) plan(name string, price float64, days int) *models.Plan {
	p, err := f.storage.CreatePlan(context.Background(), models.Plan{
		Name: name, Description: "test plan", Price: price, DurationInDays: days, IsActive: true,
	})
	require.NoError(f.t, err)
	return p
}

func (f *testDataFactory) payment(userID, planID int64, orderID string) *models.Payment {
	p, err := f.storage.CreatePayment(context.Background(), models.NewPayment{
		UserID: userID, PlanID: planID, Amount: 100, Currency: "INR",
		PaymentGateway: "Razorpay", GatewayOrderID: orderID,
	})
	require.NoError(f.t, err)
	return p
}
