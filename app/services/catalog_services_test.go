package services_test

import (
	"context"
	"testing"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ByCategory(t *testing.T) {
	db := testkit.NewDB(t)
	testkit.ProductIn(t, db, services.CategoryRawHerbs, "Hibiscus", "12.50", 10)
	testkit.ProductIn(t, db, services.CategoryPowders, "Moringa", "8.00", 5)
	testkit.ProductIn(t, db, services.CategoryPowders, "Baobab", "9.90", 0)
	svc := services.NewCatalogService(db)

	powders, err := svc.ByCategory(context.Background(), "Poudres")
	require.NoError(t, err)
	require.Len(t, powders, 2)
	for _, p := range powders {
		assert.Equal(t, services.CategoryPowders, p.Categorie)
	}

	none, err := svc.ByCategory(context.Background(), "Tisanes")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = svc.ByCategory(context.Background(), "  ")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestCatalog_Product(t *testing.T) {
	db := testkit.NewDB(t)
	p := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	svc := services.NewCatalogService(db)

	got, err := svc.Product(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hibiscus", got.Nom)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.Prix), got.Prix.String())
	assert.Equal(t, 10, got.Stock)

	_, err = svc.Product(context.Background(), 999)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, "Produit introuvable", services.MessageOf(err))
}

func TestCatalog_AllAndCategories(t *testing.T) {
	db := testkit.NewDB(t)
	svc := services.NewCatalogService(db)

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	testkit.ProductIn(t, db, services.CategoryRawHerbs, "Hibiscus", "12.50", 10)
	testkit.ProductIn(t, db, services.CategoryPowders, "Moringa", "8.00", 5)

	all, err = svc.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func intPtr(n int) *int { return &n }

func TestCatalog_CreateProduct(t *testing.T) {
	db := testkit.NewDB(t)
	powders := testkit.Category(t, db, services.CategoryPowders)
	svc := services.NewCatalogService(db)
	ctx := context.Background()

	got, err := svc.CreateProduct(ctx, services.ProductInput{
		Nom: " Moringa ", IDCategorie: powders.ID, Description: "Poudre de feuilles",
		Prix: decimal.RequireFromString("8.905"), Stock: intPtr(0),
		ModeVente: "boite", QuantiteEnG: intPtr(100), QuantiteEnSachet: intPtr(20),
	})
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "Moringa", got.Nom)
	assert.Equal(t, services.CategoryPowders, got.Categorie)
	assert.Equal(t, "8.91", got.Prix.StringFixed(2))
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, "boite", got.ModeVente)
	assert.Nil(t, got.QuantiteEnG)
	require.NotNil(t, got.QuantiteEnSachet)
	assert.Equal(t, 20, *got.QuantiteEnSachet)

	listed, err := svc.ByCategory(ctx, services.CategoryPowders)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestCatalog_CreateProductRejections(t *testing.T) {
	db := testkit.NewDB(t)
	c := testkit.Category(t, db, services.CategoryRawHerbs)
	svc := services.NewCatalogService(db)

	cases := []struct {
		name  string
		in    services.ProductInput
		field string
	}{
		{"no price", services.ProductInput{Nom: "A", IDCategorie: c.ID, Stock: intPtr(1), ModeVente: "gramme", QuantiteEnG: intPtr(50)}, "prix"},
		{"no stock", services.ProductInput{Nom: "A", IDCategorie: c.ID, Prix: decimal.NewFromInt(5), ModeVente: "gramme", QuantiteEnG: intPtr(50)}, "quantite_stock"},
		{"negative stock", services.ProductInput{Nom: "A", IDCategorie: c.ID, Prix: decimal.NewFromInt(5), Stock: intPtr(-1), ModeVente: "gramme", QuantiteEnG: intPtr(50)}, "quantite_stock"},
		{"grams missing", services.ProductInput{Nom: "A", IDCategorie: c.ID, Prix: decimal.NewFromInt(5), Stock: intPtr(1), ModeVente: "gramme", QuantiteEnSachet: intPtr(10)}, "quantite_en_g"},
		{"box size missing", services.ProductInput{Nom: "A", IDCategorie: c.ID, Prix: decimal.NewFromInt(5), Stock: intPtr(1), ModeVente: "boite"}, "quantite_en_sachet"},
		{"unknown mode", services.ProductInput{Nom: "A", IDCategorie: c.ID, Prix: decimal.NewFromInt(5), Stock: intPtr(1), ModeVente: "vrac"}, "mode_vente"},
		{"unknown category", services.ProductInput{Nom: "A", IDCategorie: 999, Prix: decimal.NewFromInt(5), Stock: intPtr(1), ModeVente: "gramme", QuantiteEnG: intPtr(50)}, "id_categorie_produit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.in)
			assert.ErrorIs(t, err, services.ErrValidation)
			var verrs *services.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Fields, tc.field)
		})
	}

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCatalog_UpdateProductKeepsOrderSnapshot(t *testing.T) {
	f := newCheckout(t)
	svc := services.NewCatalogService(f.db)
	orders := services.NewOrderService(f.db, nil)
	ctx := context.Background()

	order, err := orders.Finalize(ctx, f.input("colissimo"))
	require.NoError(t, err)

	powders := testkit.Category(t, f.db, services.CategoryPowders)
	got, err := svc.UpdateProduct(ctx, f.hibiscus.ID, services.ProductInput{
		Nom: "Hibiscus bio", IDCategorie: powders.ID,
		Prix: decimal.RequireFromString("14.00"), Stock: intPtr(40),
		ModeVente: "boite", QuantiteEnSachet: intPtr(25),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hibiscus bio", got.Nom)
	assert.Equal(t, services.CategoryPowders, got.Categorie)
	assert.Equal(t, "14.00", got.Prix.StringFixed(2))
	assert.Equal(t, 40, got.Stock)
	assert.Equal(t, "boite", got.ModeVente)
	assert.Nil(t, got.QuantiteEnG)

	detail, err := orders.Detail(ctx, order.ID)
	require.NoError(t, err)
	var hibiscus *repositories.OrderLineDetail
	for i := range detail.Lines {
		if detail.Lines[i].ProductID == f.hibiscus.ID {
			hibiscus = &detail.Lines[i]
		}
	}
	require.NotNil(t, hibiscus)
	assert.Equal(t, "12.50", hibiscus.PrixUnitaire.StringFixed(2))

	_, err = svc.UpdateProduct(ctx, 999, services.ProductInput{
		Nom: "X", IDCategorie: powders.ID, Prix: decimal.NewFromInt(1), Stock: intPtr(1),
		ModeVente: "boite", QuantiteEnSachet: intPtr(1),
	})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCatalog_DeleteProduct(t *testing.T) {
	f := newCheckout(t)
	svc := services.NewCatalogService(f.db)
	ctx := context.Background()

	loose := testkit.Product(t, f.db, "Verveine", "6.00", 4)
	testkit.CartLine(t, f.db, f.user.ID, loose.ID, 1)
	require.NoError(t, svc.DeleteProduct(ctx, loose.ID))

	_, err := svc.Product(ctx, loose.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Zero(t, countRows(t, f.db, &models.CartLine{}, "id_produit = ?", loose.ID))
	assert.Zero(t, countRows(t, f.db, &models.SaleUnit{}, "id_produit = ?", loose.ID))

	_, err = services.NewOrderService(f.db, nil).Finalize(ctx, f.input("colissimo"))
	require.NoError(t, err)
	err = svc.DeleteProduct(ctx, f.hibiscus.ID)
	assert.ErrorIs(t, err, services.ErrConflict)
	_, err = svc.Product(ctx, f.hibiscus.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteProduct(ctx, 999), services.ErrNotFound)
}
