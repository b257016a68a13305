package controllers

import (
	"net/http"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
	"gorm.io/gorm"
)

type AddressController struct {
	service *services.AddressService
}

func NewAddressController(db *gorm.DB) *AddressController {
	return &AddressController{service: services.NewAddressService(db)}
}

func (c *AddressController) latest(kind models.AddressKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		addr, err := c.service.GetLatest(r.Context(), kind, uid)
		if err != nil {
			fail(w, r, err)
			return
		}
		response.Success(w, addr)
	}
}

func (c *AddressController) update(kind models.AddressKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}
		var body services.AddressInput
		if !decode(w, r, &body) {
			return
		}
		addr, err := c.service.Update(r.Context(), kind, uid, body)
		if err != nil {
			fail(w, r, err)
			return
		}
		response.Success(w, addr)
	}
}

// LatestShipping handles GET /adresse-livraison.
func (c *AddressController) LatestShipping(w http.ResponseWriter, r *http.Request) {
	c.latest(models.Shipping)(w, r)
}

// LatestBilling handles GET /adresse-facturation.
func (c *AddressController) LatestBilling(w http.ResponseWriter, r *http.Request) {
	c.latest(models.Billing)(w, r)
}

// UpdateShipping handles PUT /adresse-livraison.
func (c *AddressController) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	c.update(models.Shipping)(w, r)
}

// UpdateBilling handles PUT /adresse-facturation.
func (c *AddressController) UpdateBilling(w http.ResponseWriter, r *http.Request) {
	c.update(models.Billing)(w, r)
}

// Persist handles POST /persist-adresses.
func (c *AddressController) Persist(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body services.PersistInput
	if !decode(w, r, &body) {
		return
	}
	ids, err := c.service.Persist(r.Context(), uid, body)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, ids)
}

// PersistRelayPoint handles POST /adresse-point-relais.
func (c *AddressController) PersistRelayPoint(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var body services.RelayPointInput
	if !decode(w, r, &body) {
		return
	}
	id, err := c.service.PersistRelayPoint(r.Context(), uid, body)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]uint{"idLivraison": id})
}
