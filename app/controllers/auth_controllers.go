package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
	"gorm.io/gorm"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{
		service: services.NewAuthService(db),
	}
}

// Register handles POST /register.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var body services.RegisterInput
	if !decode(w, r, &body) {
		return
	}

	user, err := c.service.Register(r.Context(), body)
	if err != nil {
		fail(w, r, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"id":      user.ID,
		"email":   user.Email,
		"message": "Compte créé, vérifiez votre email pour le confirmer",
	})
}

// Confirm handles GET /confirm/{token}.
func (c *AuthController) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Confirm(r.Context(), chi.URLParam(r, "token")); err != nil {
		fail(w, r, err)
		return
	}
	response.Message(w, "Compte confirmé")
}

// Login handles POST /login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body services.LoginInput
	if !decode(w, r, &body) {
		return
	}

	result, err := c.service.Login(r.Context(), body)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, result)
}
