package controllers

import (
	"net/http"
	"strconv"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
	"gorm.io/gorm"
)

type ShippingController struct {
	service *services.ShippingService
}

func NewShippingController(db *gorm.DB, relay services.RelaySearcher, relayRate string) *ShippingController {
	return &ShippingController{service: services.NewShippingService(db, relay, relayRate)}
}

func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		response.Error(w, http.StatusBadRequest, "Paramètre "+name+" invalide")
		return 0, false
	}
	return n, true
}

// Colissimo handles GET /colissimo-tarif?poids=.
func (c *ShippingController) Colissimo(w http.ResponseWriter, r *http.Request) {
	poids, ok := intQuery(w, r, "poids")
	if !ok {
		return
	}
	prix, err := c.service.QuoteColissimo(r.Context(), poids)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]interface{}{"poids": poids, "prix": prix})
}

// Quote handles GET /frais-livraison?mode=&articles=.
func (c *ShippingController) Quote(w http.ResponseWriter, r *http.Request) {
	articles, ok := intQuery(w, r, "articles")
	if !ok {
		return
	}
	q, err := c.service.Quote(r.Context(), r.URL.Query().Get("mode"), articles)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, q)
}

// RelayPoints handles GET /mondialrelay-points-relais?postcode=.
func (c *ShippingController) RelayPoints(w http.ResponseWriter, r *http.Request) {
	points, err := c.service.RelayPoints(r.Context(), r.URL.Query().Get("postcode"))
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, points)
}
