package controllers

import (
	"net/http"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
)

type PaymentController struct {
	service *services.PaymentService
}

func NewPaymentController(gateway services.PaymentGateway) *PaymentController {
	return &PaymentController{service: services.NewPaymentService(gateway)}
}

// CreateIntent handles POST /create-payment-intent.
func (c *PaymentController) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var body services.CreateIntentInput
	if !decode(w, r, &body) {
		return
	}
	secret, err := c.service.CreateIntent(r.Context(), body.Amount)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]string{"clientSecret": secret})
}
