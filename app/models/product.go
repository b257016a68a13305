package models

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale modes derived from the packaging of a SaleUnit.
const (
	ModeGramme = "gramme"
	ModeBoite  = "boite"
)

// ErrPackaging is returned when a SaleUnit does not have exactly one of
// QuantiteEnG and QuantiteEnSachet.
var ErrPackaging = errors.New("sale unit must be sold either by grams or by box")

type Category struct {
	ID  uint   `gorm:"primaryKey" json:"id"`
	Nom string `gorm:"size:100;not null;uniqueIndex" json:"nom"`
}

func (Category) TableName() string { return "categorie_produit" }

type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Nom         string    `gorm:"size:255;not null;index" json:"nom"`
	CategoryID  uint      `gorm:"column:id_categorie;not null;index" json:"id_categorie"`
	Description string    `gorm:"type:text" json:"description"`
	Utilisation string    `gorm:"type:text" json:"utilisation"`
	Precautions string    `gorm:"type:text" json:"precautions"`
	Image       []byte    `json:"image,omitempty"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"categorie,omitempty"`
	SaleUnit    *SaleUnit `gorm:"foreignKey:ProductID" json:"unite_vente,omitempty"`
}

func (Product) TableName() string { return "produit" }

// SaleUnit is the priced, stocked packaging of a product. Stock is counted
// in the unit the product is sold by (grams or boxes).
type SaleUnit struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProductID        uint            `gorm:"column:id_produit;not null;uniqueIndex" json:"id_produit"`
	QuantiteEnG      *int            `gorm:"column:quantite_en_g" json:"quantite_en_g"`
	QuantiteEnSachet *int            `gorm:"column:quantite_en_sachet" json:"quantite_en_sachet"`
	Stock            int             `gorm:"column:quantite_stock;not null;default:0;check:chk_unite_vente_stock,quantite_stock >= 0" json:"quantite_stock"`
	Prix             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"prix"`
}

func (SaleUnit) TableName() string { return "unite_vente" }

// ModeVente is "gramme" or "boite".
func (u SaleUnit) ModeVente() string {
	if u.QuantiteEnG != nil {
		return ModeGramme
	}
	return ModeBoite
}

func (u *SaleUnit) BeforeSave(*gorm.DB) error {
	if (u.QuantiteEnG == nil) == (u.QuantiteEnSachet == nil) {
		return ErrPackaging
	}
	if u.Stock < 0 {
		return errors.New("sale unit stock cannot be negative")
	}
	return nil
}
