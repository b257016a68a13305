// Package testkit holds the fixtures shared by the storefront tests: an
// isolated migrated database, stub HTTP upstreams, a mail recorder and
// table-driven API scenarios.
//
//	db := testkit.NewDB(t)
//	user := testkit.User(t, db, "ana@example.com")
//	product := testkit.Product(t, db, "Hibiscus", "12.50", 10)
package testkit

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/auth"
	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/database"
	"github.com/rituelsdebene/boutique/pkg/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	// Registers the schema.
	_ "github.com/rituelsdebene/boutique/database/migrations"
)

var dbSeq atomic.Int64

// JWTSecret is installed by NewDB so tokens minted with Token validate.
const JWTSecret = "testkit-secret-testkit-secret-32b"

// NewDB returns a migrated in-memory SQLite database private to t. SQLite
// serialises writers, so the pool holds a single connection.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	config.Set("JWT_SECRET", JWTSecret)
	cache.Use(nil)

	dsn := fmt.Sprintf("file:testkit_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := database.Open("sqlite", dsn, database.PoolOptions{MaxOpen: 1, MaxIdle: 1})
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

// User creates a confirmed client account with password "secret123".
func User(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	return account(t, db, email, auth.RoleClient)
}

// Admin creates a confirmed admin account with password "secret123".
func Admin(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	return account(t, db, email, auth.RoleAdmin)
}

func account(t testing.TB, db *gorm.DB, email, role string) models.User {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	u := models.User{Nom: "Diallo", Prenom: "Awa", Email: email, MotDePasse: hash, Role: role, Confirme: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Token mints a bearer token for u.
func Token(t testing.TB, u models.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return tok
}

// Category returns the named category, creating it on first use.
func Category(t testing.TB, db *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Nom: name}
	require.NoError(t, db.Where(models.Category{Nom: name}).FirstOrCreate(&c).Error)
	return c
}

// Product creates a gram-sold product in "Plantes brutes" with the given
// unit price and stock.
func Product(t testing.TB, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	return ProductIn(t, db, "Plantes brutes", name, price, stock)
}

func ProductIn(t testing.TB, db *gorm.DB, category, name, price string, stock int) models.Product {
	t.Helper()
	c := Category(t, db, category)

	grams := 100
	p := models.Product{
		Nom:        name,
		CategoryID: c.ID,
		SaleUnit: &models.SaleUnit{
			QuantiteEnG: &grams,
			Stock:       stock,
			Prix:        decimal.RequireFromString(price),
		},
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// CartLine puts qty of productID in userID's cart.
func CartLine(t testing.TB, db *gorm.DB, userID, productID uint, qty int) models.CartLine {
	t.Helper()
	l := models.CartLine{UserID: userID, ProductID: productID, Quantite: qty}
	require.NoError(t, db.Create(&l).Error)
	return l
}

// Stock reads a product's current stock.
func Stock(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()
	var u models.SaleUnit
	require.NoError(t, db.Where("id_produit = ?", productID).First(&u).Error)
	return u.Stock
}

// Tariffs seeds the standard Colissimo brackets.
func Tariffs(t testing.TB, db *gorm.DB) {
	t.Helper()
	for _, b := range []struct {
		max  int
		prix string
	}{
		{250, "4.99"}, {500, "6.99"}, {750, "7.99"},
		{1000, "8.99"}, {2000, "10.49"}, {5000, "15.99"},
	} {
		require.NoError(t, db.Create(&models.ColissimoTariff{
			PoidsMax: b.max,
			Prix:     decimal.RequireFromString(b.prix),
		}).Error)
	}
}
