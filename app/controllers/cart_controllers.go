package controllers

import (
	"net/http"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
	"gorm.io/gorm"
)

type CartController struct {
	carts  *services.CartService
	orders *services.OrderService
}

func NewCartController(db *gorm.DB, payments services.PaymentVerifier) *CartController {
	return &CartController{
		carts:  services.NewCartService(db),
		orders: services.NewOrderService(db, payments),
	}
}

// Show handles GET /cart.
func (c *CartController) Show(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	items, err := c.carts.Items(r.Context(), uid)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, items)
}

// Add handles POST /cart/ajouter.
func (c *CartController) Add(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body services.CartLineInput
	if !decode(w, r, &body) {
		return
	}
	if err := c.carts.Add(r.Context(), uid, body); err != nil {
		fail(w, r, err)
		return
	}
	response.Message(w, "Produit ajouté au panier")
}

// SetQuantity handles PUT /cart/quantite.
func (c *CartController) SetQuantity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body services.CartLineInput
	if !decode(w, r, &body) {
		return
	}
	if err := c.carts.SetQuantity(r.Context(), uid, body); err != nil {
		fail(w, r, err)
		return
	}
	response.Message(w, "Quantité mise à jour")
}

// Remove handles DELETE /cart/{id_produit}.
func (c *CartController) Remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "id_produit")
	if !ok {
		return
	}
	if err := c.carts.Remove(r.Context(), uid, productID); err != nil {
		fail(w, r, err)
		return
	}
	response.Message(w, "Produit retiré du panier")
}

type syncRequest struct {
	Panier []services.SyncEntry `json:"panier"`
}

// Sync handles POST /cart/sync.
func (c *CartController) Sync(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body syncRequest
	if !decode(w, r, &body) {
		return
	}
	result, err := c.carts.Sync(r.Context(), uid, body.Panier)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, result)
}

type finalizeRequest struct {
	IDFacturation FlexibleID `json:"idFacturation" validate:"required"`
	IDLivraison   FlexibleID `json:"idLivraison" validate:"required"`
	ModeLivraison string     `json:"modeLivraison" validate:"required,in=colissimo|relais|retrait"`
	PaymentIntent string     `json:"paymentIntent" validate:"nullable,max=255"`
}

// Finalize handles PUT /cart/payee.
func (c *CartController) Finalize(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body finalizeRequest
	if !decode(w, r, &body) {
		return
	}

	ctx, cancel := services.WithFinalizeDeadline(r.Context())
	defer cancel()

	order, err := c.orders.Finalize(ctx, services.FinalizeInput{
		UserID:        uid,
		IDFacturation: uint(body.IDFacturation),
		IDLivraison:   uint(body.IDLivraison),
		ModeLivraison: body.ModeLivraison,
		PaymentIntent: body.PaymentIntent,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"message":     "Commande enregistrée",
		"id_commande": order.ID,
		"total":       order.Total,
	})
}
