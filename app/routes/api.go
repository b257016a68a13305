package routes

import (
	"github.com/rituelsdebene/boutique/app/controllers"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/rbac"
	"github.com/rituelsdebene/boutique/pkg/router"
	"gorm.io/gorm"
)

// Deps are the collaborators the controllers are built from.
type Deps struct {
	DB        *gorm.DB
	Payments  services.PaymentGateway
	Relay     services.RelaySearcher
	RelayRate string
}

// RegisterAPI mounts every storefront endpoint under basePath.
func RegisterAPI(r *router.Router, basePath string, deps Deps) {
	var verifier services.PaymentVerifier
	if deps.Payments != nil {
		verifier = services.NewPaymentService(deps.Payments)
	}

	authController := controllers.NewAuthController(deps.DB)
	catalogController := controllers.NewCatalogController(deps.DB)
	cartController := controllers.NewCartController(deps.DB, verifier)
	addressController := controllers.NewAddressController(deps.DB)
	shippingController := controllers.NewShippingController(deps.DB, deps.Relay, deps.RelayRate)
	paymentController := controllers.NewPaymentController(deps.Payments)
	orderController := controllers.NewOrderController(deps.DB)

	api := r.Group(basePath)

	api.Post("/login", "auth.login", authController.Login)
	api.Post("/register", "auth.register", authController.Register)
	api.Get("/confirm/{token}", "auth.confirm", authController.Confirm)

	api.Get("/produits", "catalog.products", catalogController.Products)
	api.Get("/plantes-brutes", "catalog.raw_herbs", catalogController.RawHerbs)
	api.Get("/poudres", "catalog.powders", catalogController.Powders)
	api.Get("/produit/{id}", "catalog.product", catalogController.Product)

	api.Get("/colissimo-tarif", "shipping.colissimo", shippingController.Colissimo)
	api.Get("/frais-livraison", "shipping.quote", shippingController.Quote)
	api.Get("/mondialrelay-points-relais", "shipping.relay_points", shippingController.RelayPoints)

	api.Post("/create-payment-intent", "payment.create_intent", paymentController.CreateIntent)

	client := api.Group("", rbac.Client())
	client.Get("/cart", "cart.show", cartController.Show)
	client.Post("/cart/ajouter", "cart.add", cartController.Add)
	client.Put("/cart/quantite", "cart.quantity", cartController.SetQuantity)
	client.Post("/cart/sync", "cart.sync", cartController.Sync)
	client.Delete("/cart/{id_produit}", "cart.remove", cartController.Remove)

	user := api.Group("", rbac.Authenticated())
	user.Put("/cart/payee", "cart.finalize", cartController.Finalize)
	user.Get("/adresse-livraison", "address.shipping.show", addressController.LatestShipping)
	user.Put("/adresse-livraison", "address.shipping.update", addressController.UpdateShipping)
	user.Get("/adresse-facturation", "address.billing.show", addressController.LatestBilling)
	user.Put("/adresse-facturation", "address.billing.update", addressController.UpdateBilling)
	user.Post("/persist-adresses", "address.persist", addressController.Persist)
	user.Post("/adresse-point-relais", "address.relay_point", addressController.PersistRelayPoint)

	admin := api.Group("", rbac.Admin())
	admin.Get("/categories", "admin.categories", catalogController.Categories)
	admin.Get("/liste-produits", "admin.products", catalogController.AllProducts)
	admin.Post("/produit", "admin.product.create", catalogController.CreateProduct)
	admin.Put("/produit/{id}", "admin.product.update", catalogController.UpdateProduct)
	admin.Delete("/produit/{id}", "admin.product.delete", catalogController.DeleteProduct)
	admin.Get("/list-commandes", "admin.orders", orderController.Index)
	admin.Get("/details-commande/{id}", "admin.order", orderController.Show)
}
