package controllers

import (
	"net/http"
	"strconv"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
	"gorm.io/gorm"
)

type OrderController struct {
	service *services.OrderService
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{service: services.NewOrderService(db, nil)}
}

// Index handles GET /list-commandes?page=&limit=.
func (c *OrderController) Index(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, p, err := c.service.List(r.Context(), page, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, orders, p)
}

// Show handles GET /details-commande/{id}.
func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := c.service.Detail(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, detail)
}
