//go:build integration

package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/database"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/migration"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// postgresDB starts a throwaway PostgreSQL server and returns it migrated.
func postgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("boutique"),
		postgres.WithUsername("boutique"),
		postgres.WithPassword("boutique"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	config.Set("JWT_SECRET", testkit.JWTSecret)
	cache.Use(nil)

	db, err := database.Open("postgres", dsn, database.PoolOptions{MaxOpen: 20, MaxIdle: 5})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	_, err = migration.New(db).Run()
	require.NoError(t, err)
	return db
}

func TestFinalize_Postgres_ConcurrentRequests(t *testing.T) {
	db := postgresDB(t)
	t.Cleanup(event.Flush)
	ctx := context.Background()

	user := testkit.User(t, db, "awa@example.com")
	hibiscus := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	moringa := testkit.ProductIn(t, db, "Poudres", "Moringa", "8.00", 5)
	testkit.CartLine(t, db, user.ID, hibiscus.ID, 2)
	testkit.CartLine(t, db, user.ID, moringa.ID, 1)

	ids, err := services.NewAddressService(db).Persist(ctx, user.ID, services.PersistInput{
		Livraison: services.AddressInput{
			Prenom: "Awa", Nom: "Diallo", Adresse: "12 rue des Lilas",
			CodePostal: "75010", Ville: "Paris", Telephone: "0601020304",
		},
	})
	require.NoError(t, err)

	svc := services.NewOrderService(db, nil)
	in := services.FinalizeInput{
		UserID:        user.ID,
		IDFacturation: ids.IDFacturation,
		IDLivraison:   ids.IDLivraison,
		ModeLivraison: models.DeliveryColissimo,
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Finalize(ctx, in)
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, services.ErrAlreadyFinalized)
	}
	assert.Equal(t, 1, created)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 1, orders)
	assert.Equal(t, 8, testkit.Stock(t, db, hibiscus.ID))
	assert.Equal(t, 4, testkit.Stock(t, db, moringa.ID))

	var lines int64
	require.NoError(t, db.Model(&models.CartLine{}).Where("id_utilisateur = ?", user.ID).Count(&lines).Error)
	assert.Zero(t, lines)
}

func TestFinalize_Postgres_InsufficientStockRollsBack(t *testing.T) {
	db := postgresDB(t)
	t.Cleanup(event.Flush)
	ctx := context.Background()

	user := testkit.User(t, db, "awa@example.com")
	hibiscus := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	baobab := testkit.Product(t, db, "Baobab", "9.90", 1)
	testkit.CartLine(t, db, user.ID, hibiscus.ID, 2)
	testkit.CartLine(t, db, user.ID, baobab.ID, 3)

	ids, err := services.NewAddressService(db).Persist(ctx, user.ID, services.PersistInput{
		Livraison: services.AddressInput{
			Prenom: "Awa", Nom: "Diallo", Adresse: "12 rue des Lilas",
			CodePostal: "75010", Ville: "Paris", Telephone: "0601020304",
		},
	})
	require.NoError(t, err)

	_, err = services.NewOrderService(db, nil).Finalize(ctx, services.FinalizeInput{
		UserID: user.ID, IDFacturation: ids.IDFacturation, IDLivraison: ids.IDLivraison,
		ModeLivraison: models.DeliveryRelay,
	})
	assert.ErrorIs(t, err, services.ErrInsufficientStock)

	assert.Equal(t, 10, testkit.Stock(t, db, hibiscus.ID))
	assert.Equal(t, 1, testkit.Stock(t, db, baobab.ID))

	var unpaid int64
	require.NoError(t, db.Model(&models.CartLine{}).
		Where("id_utilisateur = ? AND payee = ?", user.ID, false).Count(&unpaid).Error)
	assert.EqualValues(t, 2, unpaid)
}
