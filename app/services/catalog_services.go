package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category names used by the legacy listing routes.
const (
	CategoryRawHerbs = "Plantes brutes"
	CategoryPowders  = "Poudres"
)

const (
	listingTTL    = 5 * time.Minute
	listingPrefix = "catalog:categorie:"
)

func listingKey(category string) string {
	return listingPrefix + strings.ToLower(strings.TrimSpace(category))
}

// ForgetListings drops every cached category listing. Called after stock
// moved, since listings carry quantite_stock.
func ForgetListings() {
	if err := cache.DelPrefix(listingPrefix); err != nil {
		logger.Warn("catalog: forget listings", "error", err)
	}
}

func forgetListing(categories ...string) {
	keys := make([]string, 0, len(categories))
	for _, c := range categories {
		keys = append(keys, listingKey(c))
	}
	if err := cache.Del(keys...); err != nil {
		logger.Warn("catalog: forget listing", "categories", categories, "error", err)
	}
}

// ProductInput is the admin body for creating or replacing a product and
// its sale unit. Images are not handled here.
type ProductInput struct {
	Nom              string          `json:"nom_produit" validate:"required,max=255"`
	IDCategorie      uint            `json:"id_categorie_produit" validate:"required"`
	Description      string          `json:"description"`
	Utilisation      string          `json:"utilisation"`
	Precautions      string          `json:"precautions"`
	Prix             decimal.Decimal `json:"prix"`
	Stock            *int            `json:"quantite_stock"`
	ModeVente        string          `json:"mode_vente" validate:"required,in=gramme|boite"`
	QuantiteEnG      *int            `json:"quantite_en_g" validate:"nullable,gte=1"`
	QuantiteEnSachet *int            `json:"quantite_en_sachet" validate:"nullable,gte=1"`
}

// check covers what struct tags cannot: money, a zero stock, and the
// packaging required by the sale mode.
func (in ProductInput) check(op string) error {
	fields := map[string]string{}
	if !in.Prix.IsPositive() {
		fields["prix"] = "Le champ prix doit être supérieur à 0."
	}
	switch {
	case in.Stock == nil:
		fields["quantite_stock"] = "Le champ quantite_stock est obligatoire."
	case *in.Stock < 0:
		fields["quantite_stock"] = "Le champ quantite_stock doit être supérieur ou égal à 0."
	}
	switch in.ModeVente {
	case models.ModeGramme:
		if in.QuantiteEnG == nil {
			fields["quantite_en_g"] = "Le champ quantite_en_g est obligatoire en vente au gramme."
		}
	case models.ModeBoite:
		if in.QuantiteEnSachet == nil {
			fields["quantite_en_sachet"] = "Le champ quantite_en_sachet est obligatoire en vente à la boîte."
		}
	default:
		fields["mode_vente"] = "Le champ mode_vente doit valoir gramme, boite."
	}
	if len(fields) > 0 {
		return &ValidationErrors{Op: op, Fields: fields}
	}
	return nil
}

// unit builds the sale unit. Only the packaging of the chosen mode is kept.
func (in ProductInput) unit() models.SaleUnit {
	u := models.SaleUnit{Stock: *in.Stock, Prix: in.Prix.Round(2)}
	if in.ModeVente == models.ModeGramme {
		u.QuantiteEnG = in.QuantiteEnG
	} else {
		u.QuantiteEnSachet = in.QuantiteEnSachet
	}
	return u
}

func (in ProductInput) product() models.Product {
	return models.Product{
		Nom:         strings.TrimSpace(in.Nom),
		CategoryID:  in.IDCategorie,
		Description: in.Description,
		Utilisation: in.Utilisation,
		Precautions: in.Precautions,
	}
}

type CatalogService struct {
	products *repositories.ProductRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{products: repositories.NewProductRepository(db)}
}

// ByCategory lists a category's products. Listings are cached briefly.
func (s *CatalogService) ByCategory(ctx context.Context, category string) ([]repositories.ProductListing, error) {
	const op = "catalog.by_category"
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, validation(op, "Catégorie requise")
	}

	out, err := cache.Remember(listingKey(category), listingTTL, func() ([]repositories.ProductListing, error) {
		return s.products.ByCategory(ctx, category)
	})
	if err != nil {
		return nil, internal(op, err)
	}
	if out == nil {
		out = []repositories.ProductListing{}
	}
	return out, nil
}

// Product returns one product with its sale unit.
func (s *CatalogService) Product(ctx context.Context, id uint) (repositories.ProductListing, error) {
	const op = "catalog.product"
	p, err := s.products.FindListing(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return repositories.ProductListing{}, notFound(op, "Produit introuvable")
	}
	if err != nil {
		return repositories.ProductListing{}, internal(op, err)
	}
	return p, nil
}

// All lists every product for the back office.
func (s *CatalogService) All(ctx context.Context) ([]repositories.ProductListing, error) {
	out, err := s.products.All(ctx)
	if err != nil {
		return nil, internal("catalog.all", err)
	}
	if out == nil {
		out = []repositories.ProductListing{}
	}
	return out, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	out, err := s.products.Categories(ctx)
	if err != nil {
		return nil, internal("catalog.categories", err)
	}
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}

func (s *CatalogService) category(ctx context.Context, op string, id uint) (models.Category, error) {
	c, err := s.products.Category(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return c, &ValidationErrors{Op: op, Fields: map[string]string{
			"id_categorie_produit": "Catégorie inconnue.",
		}}
	}
	if err != nil {
		return c, internal(op, err)
	}
	return c, nil
}

func (s *CatalogService) categoryOf(ctx context.Context, op string, id uint) (string, error) {
	name, err := s.products.CategoryOf(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", notFound(op, "Produit introuvable")
	}
	if err != nil {
		return "", internal(op, err)
	}
	return name, nil
}

// CreateProduct inserts a product with its sale unit.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (repositories.ProductListing, error) {
	const op = "catalog.create_product"
	if err := in.check(op); err != nil {
		return repositories.ProductListing{}, err
	}
	cat, err := s.category(ctx, op, in.IDCategorie)
	if err != nil {
		return repositories.ProductListing{}, err
	}

	p := in.product()
	unit := in.unit()
	p.SaleUnit = &unit
	if err := s.products.Create(ctx, &p); err != nil {
		if errors.Is(err, models.ErrPackaging) {
			return repositories.ProductListing{}, validation(op, "Conditionnement invalide")
		}
		return repositories.ProductListing{}, internal(op, err)
	}
	forgetListing(cat.Nom)

	logger.WithCtx(ctx).Info("product created", "product_id", p.ID, "categorie", cat.Nom)
	return s.Product(ctx, p.ID)
}

// UpdateProduct replaces a product's fields and sale unit. A new price only
// affects future orders; order lines keep their snapshot.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (repositories.ProductListing, error) {
	const op = "catalog.update_product"
	if err := in.check(op); err != nil {
		return repositories.ProductListing{}, err
	}
	previous, err := s.categoryOf(ctx, op, id)
	if err != nil {
		return repositories.ProductListing{}, err
	}
	cat, err := s.category(ctx, op, in.IDCategorie)
	if err != nil {
		return repositories.ProductListing{}, err
	}

	p := in.product()
	p.ID = id
	err = s.products.Update(ctx, p, in.unit())
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return repositories.ProductListing{}, notFound(op, "Produit introuvable")
	case errors.Is(err, models.ErrPackaging):
		return repositories.ProductListing{}, validation(op, "Conditionnement invalide")
	case err != nil:
		return repositories.ProductListing{}, internal(op, err)
	}
	forgetListing(previous, cat.Nom)

	logger.WithCtx(ctx).Info("product updated", "product_id", id)
	return s.Product(ctx, id)
}

// DeleteProduct removes a product that was never ordered.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	const op = "catalog.delete_product"
	cat, err := s.categoryOf(ctx, op, id)
	if err != nil {
		return err
	}

	err = s.products.Delete(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return notFound(op, "Produit introuvable")
	case errors.Is(err, repositories.ErrProductOrdered):
		return conflict(op, "Produit présent dans des commandes")
	case err != nil:
		return internal(op, err)
	}
	forgetListing(cat)

	logger.WithCtx(ctx).Info("product deleted", "product_id", id)
	return nil
}
