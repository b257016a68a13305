package services_test

import (
	"context"
	"testing"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paris() services.AddressInput {
	return services.AddressInput{
		Prenom: "Awa", Nom: "Diallo", Adresse: "12 rue Oberkampf",
		CodePostal: "75011", Ville: "Paris", Telephone: "0612345678",
		Instructions: "Code 1234",
	}
}

func TestAddress_FindOrCreateDeduplicates(t *testing.T) {
	db := testkit.NewDB(t)
	svc := services.NewAddressService(db)
	ctx := context.Background()

	a, err := svc.FindOrCreate(ctx, models.Shipping, paris().Fields())
	require.NoError(t, err)
	b, err := svc.FindOrCreate(ctx, models.Shipping, paris().Fields())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := paris()
	other.ComplementAdresse = "Bât. B"
	c, err := svc.FindOrCreate(ctx, models.Shipping, other.Fields())
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestAddress_FieldsNormalize(t *testing.T) {
	in := paris()
	in.Ville = "  Paris "
	f := in.Fields()
	assert.Equal(t, "Paris", f.Ville)
	assert.Equal(t, "France", f.Pays)
	assert.Equal(t, paris().Fields().Fingerprint(), f.Fingerprint())
}

func TestAddress_PersistLinksCart(t *testing.T) {
	db := testkit.NewDB(t)
	user := testkit.User(t, db, "awa@example.com")
	p := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	testkit.CartLine(t, db, user.ID, p.ID, 1)
	svc := services.NewAddressService(db)
	ctx := context.Background()

	ids, err := svc.Persist(ctx, user.ID, services.PersistInput{Livraison: paris()})
	require.NoError(t, err)
	assert.NotZero(t, ids.IDLivraison)
	assert.NotZero(t, ids.IDFacturation)

	var line models.CartLine
	require.NoError(t, db.Where("id_utilisateur = ?", user.ID).First(&line).Error)
	require.NotNil(t, line.IDLivraison)
	assert.Equal(t, ids.IDLivraison, *line.IDLivraison)
	assert.Equal(t, ids.IDFacturation, *line.IDFacturation)

	billing, err := svc.GetLatest(ctx, models.Billing, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", billing.Ville)
	assert.Empty(t, billing.Instructions)

	shipping, err := svc.GetLatest(ctx, models.Shipping, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Code 1234", shipping.Instructions)
}

func TestAddress_PersistRejectsInvalidFields(t *testing.T) {
	db := testkit.NewDB(t)
	user := testkit.User(t, db, "awa@example.com")

	in := paris()
	in.CodePostal = "7501"
	_, err := services.NewAddressService(db).Persist(context.Background(), user.ID, services.PersistInput{Livraison: in})

	var verrs *services.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields, "livraison.code_postal")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestAddress_UpdateRelinksWithoutMutating(t *testing.T) {
	db := testkit.NewDB(t)
	user := testkit.User(t, db, "awa@example.com")
	p := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	testkit.CartLine(t, db, user.ID, p.ID, 1)
	svc := services.NewAddressService(db)
	ctx := context.Background()

	ids, err := svc.Persist(ctx, user.ID, services.PersistInput{Livraison: paris()})
	require.NoError(t, err)

	moved := paris()
	moved.Adresse = "3 place du Capitole"
	moved.CodePostal = "31000"
	moved.Ville = "Toulouse"
	view, err := svc.Update(ctx, models.Shipping, user.ID, moved)
	require.NoError(t, err)
	assert.NotEqual(t, ids.IDLivraison, view.ID)

	var old models.ShippingAddress
	require.NoError(t, db.First(&old, ids.IDLivraison).Error)
	assert.Equal(t, "Paris", old.Ville)

	latest, err := svc.GetLatest(ctx, models.Shipping, user.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, latest.ID)
	assert.Equal(t, "Toulouse", latest.Ville)
}

func TestAddress_UpdateWithoutCart(t *testing.T) {
	db := testkit.NewDB(t)
	user := testkit.User(t, db, "awa@example.com")

	svc := services.NewAddressService(db)

	_, err := svc.Update(context.Background(), models.Billing, user.ID, paris())
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.Update(context.Background(), models.Shipping, user.ID, paris())
	assert.ErrorIs(t, err, services.ErrNotFound)

	assert.Zero(t, countRows(t, db, &models.BillingAddress{}, ""))
	assert.Zero(t, countRows(t, db, &models.ShippingAddress{}, ""))
}

func TestAddress_LatestFallsBackToLastOrder(t *testing.T) {
	f := newCheckout(t)
	_, err := services.NewOrderService(f.db, nil).Finalize(context.Background(), f.input(models.DeliveryColissimo))
	require.NoError(t, err)

	view, err := services.NewAddressService(f.db).GetLatest(context.Background(), models.Shipping, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.addr.IDLivraison, view.ID)
}

func TestAddress_LatestNone(t *testing.T) {
	db := testkit.NewDB(t)
	user := testkit.User(t, db, "awa@example.com")

	_, err := services.NewAddressService(db).GetLatest(context.Background(), models.Shipping, user.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAddress_PersistRelayPoint(t *testing.T) {
	db := testkit.NewDB(t)
	user := testkit.User(t, db, "awa@example.com")
	p := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	testkit.CartLine(t, db, user.ID, p.ID, 1)
	svc := services.NewAddressService(db)

	id, err := svc.PersistRelayPoint(context.Background(), user.ID, services.RelayPointInput{
		Num: "066974", LgAdr1: "TABAC DE LA MAIRIE", LgAdr3: "4 RUE DE LA PAIX", CP: "75002", Ville: "PARIS",
	})
	require.NoError(t, err)

	view, err := svc.GetLatest(context.Background(), models.Shipping, user.ID)
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "Awa", view.Prenom)
	assert.Equal(t, "4 RUE DE LA PAIX", view.Adresse)
	assert.Equal(t, "Point Relais 066974 - TABAC DE LA MAIRIE", view.Instructions)
}
