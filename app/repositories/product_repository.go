package repositories

import (
	"context"
	"errors"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/orm"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProductOrdered is returned by Delete when order lines still reference
// the product.
var ErrProductOrdered = errors.New("product is referenced by orders")

// ProductListing is a product joined with its category and sale unit.
type ProductListing struct {
	ID               uint            `json:"id_produit"`
	Nom              string          `json:"nom"`
	Categorie        string          `json:"categorie"`
	Description      string          `json:"description"`
	Utilisation      string          `json:"utilisation"`
	Precautions      string          `json:"precautions"`
	Image            []byte          `json:"image,omitempty"`
	Prix             decimal.Decimal `json:"prix"`
	Stock            int             `json:"quantite_stock"`
	QuantiteEnG      *int            `json:"quantite_en_g"`
	QuantiteEnSachet *int            `json:"quantite_en_sachet"`
	ModeVente        string          `gorm:"-" json:"mode_vente"`
}

const listingColumns = `produit.id, produit.nom, categorie_produit.nom AS categorie,
	produit.description, produit.utilisation, produit.precautions, produit.image,
	unite_vente.prix, unite_vente.quantite_stock AS stock,
	unite_vente.quantite_en_g, unite_vente.quantite_en_sachet`

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) listing(ctx context.Context) *orm.Query {
	return orm.On(r.db).WithContext(ctx).
		Table("produit").
		Select(listingColumns).
		Joins("JOIN categorie_produit ON categorie_produit.id = produit.id_categorie").
		Joins("JOIN unite_vente ON unite_vente.id_produit = produit.id")
}

// ByCategory lists the products of the named category.
func (r *ProductRepository) ByCategory(ctx context.Context, category string) ([]ProductListing, error) {
	var out []ProductListing
	err := r.listing(ctx).Where("categorie_produit.nom = ?", category).Order("produit.nom").Scan(&out)
	return withMode(out), err
}

// All lists every product that has a sale unit.
func (r *ProductRepository) All(ctx context.Context) ([]ProductListing, error) {
	var out []ProductListing
	err := r.listing(ctx).Order("produit.id").Scan(&out)
	return withMode(out), err
}

func (r *ProductRepository) FindListing(ctx context.Context, id uint) (ProductListing, error) {
	var out []ProductListing
	if err := r.listing(ctx).Where("produit.id = ?", id).Scan(&out); err != nil {
		return ProductListing{}, err
	}
	if len(out) == 0 {
		return ProductListing{}, ErrNotFound
	}
	return withMode(out)[0], nil
}

func (r *ProductRepository) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := orm.On(r.db).WithContext(ctx).Order("nom").Get(&out)
	return out, err
}

// Stocks returns the stock of each product in ids that has a sale unit.
func (r *ProductRepository) Stocks(ctx context.Context, ids []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ProductID uint `gorm:"column:id_produit"`
		Stock     int  `gorm:"column:quantite_stock"`
	}
	err := orm.On(r.db).WithContext(ctx).
		Model(&models.SaleUnit{}).
		Select("id_produit, quantite_stock").
		Where("id_produit IN ?", ids).
		Scan(&rows)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = row.Stock
	}
	return out, nil
}

func (r *ProductRepository) Category(ctx context.Context, id uint) (models.Category, error) {
	var c models.Category
	err := orm.On(r.db).WithContext(ctx).Where("id = ?", id).First(&c)
	return c, translate(err)
}

// CategoryOf returns the category name of product id.
func (r *ProductRepository) CategoryOf(ctx context.Context, id uint) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("produit").
		Joins("JOIN categorie_produit ON categorie_produit.id = produit.id_categorie").
		Where("produit.id = ?", id).
		Pluck("categorie_produit.nom", &names).Error
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}
	return names[0], nil
}

// Create inserts p together with its sale unit.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update overwrites the product columns (the image is kept) and its sale
// unit. The sale unit goes through its save hooks.
func (r *ProductRepository) Update(ctx context.Context, p models.Product, unit models.SaleUnit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Product
		if err := tx.Preload("SaleUnit").Where("id = ?", p.ID).First(&current).Error; err != nil {
			return translate(err)
		}

		err := tx.Model(&current).Select("nom", "id_categorie", "description", "utilisation", "precautions").
			Updates(map[string]interface{}{
				"nom":          p.Nom,
				"id_categorie": p.CategoryID,
				"description":  p.Description,
				"utilisation":  p.Utilisation,
				"precautions":  p.Precautions,
			}).Error
		if err != nil {
			return err
		}

		unit.ProductID = p.ID
		if current.SaleUnit != nil {
			unit.ID = current.SaleUnit.ID
		}
		return tx.Omit(clause.Associations).Save(&unit).Error
	})
}

// Delete removes the product, its sale unit and the unpaid cart lines that
// point at it. Products already sold are kept so order history stays whole.
func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sold int64
		if err := tx.Model(&models.OrderLine{}).Where("id_produit = ?", id).Count(&sold).Error; err != nil {
			return err
		}
		if sold > 0 {
			return ErrProductOrdered
		}

		if err := tx.Where("id_produit = ? AND payee = ?", id, false).Delete(&models.CartLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id_produit = ?", id).Delete(&models.SaleUnit{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func withMode(in []ProductListing) []ProductListing {
	for i := range in {
		if in[i].QuantiteEnG != nil {
			in[i].ModeVente = models.ModeGramme
		} else {
			in[i].ModeVente = models.ModeBoite
		}
	}
	return in
}
