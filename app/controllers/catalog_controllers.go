package controllers

import (
	"net/http"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/response"
	"gorm.io/gorm"
)

type CatalogController struct {
	service *services.CatalogService
}

func NewCatalogController(db *gorm.DB) *CatalogController {
	return &CatalogController{service: services.NewCatalogService(db)}
}

// Products handles GET /produits?categorie=.
func (c *CatalogController) Products(w http.ResponseWriter, r *http.Request) {
	c.listing(w, r, r.URL.Query().Get("categorie"))
}

// RawHerbs handles GET /plantes-brutes.
func (c *CatalogController) RawHerbs(w http.ResponseWriter, r *http.Request) {
	c.listing(w, r, services.CategoryRawHerbs)
}

// Powders handles GET /poudres.
func (c *CatalogController) Powders(w http.ResponseWriter, r *http.Request) {
	c.listing(w, r, services.CategoryPowders)
}

func (c *CatalogController) listing(w http.ResponseWriter, r *http.Request, category string) {
	out, err := c.service.ByCategory(r.Context(), category)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, out)
}

// Product handles GET /produit/{id}.
func (c *CatalogController) Product(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := c.service.Product(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// Categories handles GET /categories (admin).
func (c *CatalogController) Categories(w http.ResponseWriter, r *http.Request) {
	out, err := c.service.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, out)
}

// AllProducts handles GET /liste-produits (admin).
func (c *CatalogController) AllProducts(w http.ResponseWriter, r *http.Request) {
	out, err := c.service.All(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, out)
}

// CreateProduct handles POST /produit (admin).
func (c *CatalogController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body services.ProductInput
	if !decode(w, r, &body) {
		return
	}
	p, err := c.service.CreateProduct(r.Context(), body)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, p)
}

// UpdateProduct handles PUT /produit/{id} (admin).
func (c *CatalogController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body services.ProductInput
	if !decode(w, r, &body) {
		return
	}
	p, err := c.service.UpdateProduct(r.Context(), id, body)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// DeleteProduct handles DELETE /produit/{id} (admin).
func (c *CatalogController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.service.DeleteProduct(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	response.Message(w, "Produit supprimé")
}
