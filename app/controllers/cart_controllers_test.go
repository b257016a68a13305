package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/app/routes"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/stripe"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var livraison = map[string]string{
	"prenom": "Awa", "nom": "Diallo", "adresse": "12 rue des Lilas",
	"code_postal": "75010", "ville": "Paris", "telephone": "0601020304",
}

func TestCartEndpoints(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db)
	tok := testkit.Token(t, testkit.User(t, db, "awa@example.com"))
	hibiscus := testkit.Product(t, db, "Hibiscus", "12.50", 3)

	testkit.Run(t, h,
		testkit.Scenario{
			Name: "add", Method: http.MethodPost, URL: "/cart/ajouter", Token: tok,
			Body:         map[string]interface{}{"id_produit": hibiscus.ID, "quantite": 2},
			ExpectedCode: http.StatusOK, ExpectedMessage: "Produit ajouté au panier",
		},
		testkit.Scenario{
			Name: "add unknown product", Method: http.MethodPost, URL: "/cart/ajouter", Token: tok,
			Body:         map[string]interface{}{"id_produit": 999, "quantite": 1},
			ExpectedCode: http.StatusNotFound,
		},
		testkit.Scenario{
			Name: "add zero", Method: http.MethodPost, URL: "/cart/ajouter", Token: tok,
			Body:         map[string]interface{}{"id_produit": hibiscus.ID, "quantite": 0},
			ExpectedCode: http.StatusUnprocessableEntity,
		},
		testkit.Scenario{
			Name: "show", Method: http.MethodGet, URL: "/cart", Token: tok,
			ExpectedCode: http.StatusOK,
			Check: func(t *testing.T, env testkit.Envelope) {
				var items []repositories.CartItem
				testkit.Data(t, env, &items)
				require.Len(t, items, 1)
				assert.Equal(t, 2, items[0].Quantite)
				assert.Equal(t, "gramme", items[0].ModeVente)
			},
		},
		testkit.Scenario{
			Name: "set quantity", Method: http.MethodPut, URL: "/cart/quantite", Token: tok,
			Body:         map[string]interface{}{"id_produit": hibiscus.ID, "quantite": 3},
			ExpectedCode: http.StatusOK,
		},
		testkit.Scenario{
			Name: "sync", Method: http.MethodPost, URL: "/cart/sync", Token: tok,
			Body: map[string]interface{}{"panier": []map[string]interface{}{
				{"id_produit": hibiscus.ID, "quantite": 1},
				{"id_produit": "abc", "quantite": 1},
			}},
			ExpectedCode: http.StatusOK,
			Check: func(t *testing.T, env testkit.Envelope) {
				var res services.SyncResult
				testkit.Data(t, env, &res)
				require.Len(t, res.Panier, 1)
				assert.Equal(t, 3, res.Panier[0].Quantite)
				assert.Len(t, res.Ignores, 1)
			},
		},
		testkit.Scenario{
			Name: "remove", Method: http.MethodDelete, URL: fmt.Sprintf("/cart/%d", hibiscus.ID), Token: tok,
			ExpectedCode: http.StatusOK,
		},
		testkit.Scenario{
			Name: "remove bad id", Method: http.MethodDelete, URL: "/cart/abc", Token: tok,
			ExpectedCode: http.StatusBadRequest, ExpectedMessage: "Identifiant invalide",
		},
	)
}

func TestCheckoutFlow(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db)
	user := testkit.User(t, db, "awa@example.com")
	tok := testkit.Token(t, user)
	admin := testkit.Token(t, testkit.Admin(t, db, "admin@example.com"))
	hibiscus := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	testkit.CartLine(t, db, user.ID, hibiscus.ID, 2)

	rec := testkit.Do(t, h, http.MethodPost, "/persist-adresses",
		map[string]interface{}{"livraison": livraison, "modeLivraison": "colissimo"}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ids services.PersistedAddresses
	testkit.Data(t, testkit.Decode(t, rec), &ids)
	require.NotZero(t, ids.IDLivraison)
	require.NotZero(t, ids.IDFacturation)

	finalize := map[string]interface{}{
		"idFacturation": ids.IDFacturation,
		"idLivraison":   fmt.Sprint(ids.IDLivraison),
		"modeLivraison": "colissimo",
		"paymentIntent": "pi_1",
	}

	var orderID uint
	testkit.Run(t, h,
		testkit.Scenario{
			Name: "bad mode", Method: http.MethodPut, URL: "/cart/payee", Token: tok,
			Body:         map[string]interface{}{"idFacturation": ids.IDFacturation, "idLivraison": ids.IDLivraison, "modeLivraison": "drone"},
			ExpectedCode: http.StatusUnprocessableEntity,
		},
		testkit.Scenario{
			Name: "unknown address", Method: http.MethodPut, URL: "/cart/payee", Token: tok,
			Body:         map[string]interface{}{"idFacturation": 999, "idLivraison": ids.IDLivraison, "modeLivraison": "colissimo"},
			ExpectedCode: http.StatusBadRequest,
		},
		testkit.Scenario{
			Name: "finalize", Method: http.MethodPut, URL: "/cart/payee", Token: tok, Body: finalize,
			ExpectedCode: http.StatusOK,
			Check: func(t *testing.T, env testkit.Envelope) {
				var res struct {
					ID uint `json:"id_commande"`
				}
				testkit.Data(t, env, &res)
				orderID = res.ID
				assert.NotZero(t, res.ID)
			},
		},
		testkit.Scenario{
			Name: "finalize again", Method: http.MethodPut, URL: "/cart/payee", Token: tok, Body: finalize,
			ExpectedCode: http.StatusConflict, ExpectedMessage: "Commande déjà finalisée",
			Check: func(t *testing.T, env testkit.Envelope) {
				assert.Equal(t, services.CodeAlreadyFinalized, env.Code)
			},
		},
	)
	assert.Equal(t, 8, testkit.Stock(t, db, hibiscus.ID))

	testkit.Run(t, h,
		testkit.Scenario{
			Name: "admin list", Method: http.MethodGet, URL: "/list-commandes?page=1&limit=10", Token: admin,
			ExpectedCode: http.StatusOK,
			Check: func(t *testing.T, env testkit.Envelope) {
				var page struct {
					Items []repositories.OrderSummary `json:"items"`
				}
				testkit.Data(t, env, &page)
				require.Len(t, page.Items, 1)
				assert.Equal(t, "awa@example.com", page.Items[0].Email)
				assert.Equal(t, "25.00", page.Items[0].Total.StringFixed(2))
			},
		},
		testkit.Scenario{
			Name: "admin detail", Method: http.MethodGet, URL: fmt.Sprintf("/details-commande/%d", orderID), Token: admin,
			ExpectedCode: http.StatusOK,
			Check: func(t *testing.T, env testkit.Envelope) {
				var d services.OrderDetail
				testkit.Data(t, env, &d)
				require.Len(t, d.Lines, 1)
				assert.Equal(t, 2, d.Lines[0].Quantite)
				require.NotNil(t, d.Livraison)
				assert.Equal(t, "75010", d.Livraison.CodePostal)
			},
		},
		testkit.Scenario{
			Name: "admin detail unknown", Method: http.MethodGet, URL: "/details-commande/999", Token: admin,
			ExpectedCode: http.StatusNotFound,
		},
	)
}

func TestFinalize_InsufficientStock(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db)
	user := testkit.User(t, db, "awa@example.com")
	tok := testkit.Token(t, user)
	p := testkit.Product(t, db, "Hibiscus", "12.50", 1)
	testkit.CartLine(t, db, user.ID, p.ID, 3)

	rec := testkit.Do(t, h, http.MethodPost, "/persist-adresses", map[string]interface{}{"livraison": livraison}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ids services.PersistedAddresses
	testkit.Data(t, testkit.Decode(t, rec), &ids)

	testkit.Run(t, h, testkit.Scenario{
		Name: "short", Method: http.MethodPut, URL: "/cart/payee", Token: tok,
		Body: map[string]interface{}{
			"idFacturation": ids.IDFacturation, "idLivraison": ids.IDLivraison,
			"modeLivraison": "colissimo", "paymentIntent": "pi_1",
		},
		ExpectedCode: http.StatusConflict, ExpectedMessage: "Stock insuffisant",
		Check: func(t *testing.T, env testkit.Envelope) {
			assert.Equal(t, services.CodeInsufficientStock, env.Code)
		},
	})
	assert.Equal(t, 1, testkit.Stock(t, db, p.ID))
}

func TestFinalize_PaymentNotSucceeded(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db, routes.Deps{Payments: &gateway{status: "requires_payment_method"}})
	user := testkit.User(t, db, "awa@example.com")
	tok := testkit.Token(t, user)
	p := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	testkit.CartLine(t, db, user.ID, p.ID, 1)

	rec := testkit.Do(t, h, http.MethodPost, "/persist-adresses", map[string]interface{}{"livraison": livraison}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ids services.PersistedAddresses
	testkit.Data(t, testkit.Decode(t, rec), &ids)

	testkit.Run(t, h, testkit.Scenario{
		Name: "unpaid", Method: http.MethodPut, URL: "/cart/payee", Token: tok,
		Body: map[string]interface{}{
			"idFacturation": ids.IDFacturation, "idLivraison": ids.IDLivraison,
			"modeLivraison": "retrait", "paymentIntent": "pi_1",
		},
		ExpectedCode: http.StatusPaymentRequired, ExpectedMessage: "Paiement non confirmé",
	})
	assert.Equal(t, 10, testkit.Stock(t, db, p.ID))
}

func TestFinalize_GatewayTimeout(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db, routes.Deps{Payments: &gateway{err: fmt.Errorf("stripe: retrieve: %w", stripe.ErrTimeout)}})
	user := testkit.User(t, db, "awa@example.com")
	tok := testkit.Token(t, user)
	p := testkit.Product(t, db, "Hibiscus", "12.50", 10)
	testkit.CartLine(t, db, user.ID, p.ID, 1)

	rec := testkit.Do(t, h, http.MethodPost, "/persist-adresses", map[string]interface{}{"livraison": livraison}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ids services.PersistedAddresses
	testkit.Data(t, testkit.Decode(t, rec), &ids)

	testkit.Run(t, h, testkit.Scenario{
		Name: "timeout", Method: http.MethodPut, URL: "/cart/payee", Token: tok,
		Body: map[string]interface{}{
			"idFacturation": ids.IDFacturation, "idLivraison": ids.IDLivraison,
			"modeLivraison": "colissimo", "paymentIntent": "pi_1",
		},
		ExpectedCode: http.StatusGatewayTimeout,
	})
}
