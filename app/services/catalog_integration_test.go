//go:build integration

package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCache_RefreshedAfterWrites(t *testing.T) {
	f := newCheckout(t)
	rdb := testkit.Redis(t)
	catalog := services.NewCatalogService(f.db)
	ctx := context.Background()

	stockOf := func(name string) int {
		t.Helper()
		listed, err := catalog.ByCategory(ctx, services.CategoryRawHerbs)
		require.NoError(t, err)
		for _, p := range listed {
			if p.Nom == name {
				return p.Stock
			}
		}
		t.Fatalf("%s not listed", name)
		return 0
	}

	assert.Equal(t, 10, stockOf("Hibiscus"))
	n, err := rdb.Exists(ctx, "catalog:categorie:plantes brutes").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = services.NewOrderService(f.db, nil).Finalize(ctx, f.input("colissimo"))
	require.NoError(t, err)
	assert.Equal(t, 8, stockOf("Hibiscus"))

	raw := testkit.Category(t, f.db, services.CategoryRawHerbs)
	stock := 25
	_, err = catalog.UpdateProduct(ctx, f.hibiscus.ID, services.ProductInput{
		Nom: "Hibiscus", IDCategorie: raw.ID, Prix: decimal.RequireFromString("13.00"),
		Stock: &stock, ModeVente: "gramme", QuantiteEnG: &stock,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, stockOf("Hibiscus"))
}

func TestCache_DelPrefix(t *testing.T) {
	rdb := testkit.Redis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set("catalog:categorie:poudres", []int{1}, time.Minute))
	require.NoError(t, cache.Set("catalog:categorie:plantes brutes", []int{2}, time.Minute))
	require.NoError(t, cache.Set("colissimo:tarifs", []int{3}, time.Minute))

	require.NoError(t, cache.DelPrefix("catalog:categorie:"))

	n, err := rdb.Exists(ctx, "catalog:categorie:poudres", "catalog:categorie:plantes brutes").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = rdb.Exists(ctx, "colissimo:tarifs").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
