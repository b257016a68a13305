package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Delivery methods accepted at checkout.
const (
	DeliveryColissimo    = "colissimo"
	DeliveryRelay        = "relais"
	DeliveryClickCollect = "retrait"
)

// Order is created exactly once per finalized cart and never edited by the
// checkout flow afterwards.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"column:id_utilisateur;not null;index" json:"id_utilisateur"`
	Payee         bool            `gorm:"not null;default:false" json:"payee"`
	Preparee      bool            `gorm:"not null;default:false" json:"preparee"`
	IDFacturation uint            `gorm:"column:id_facturation;not null" json:"id_facturation"`
	IDLivraison   uint            `gorm:"column:id_livraison;not null" json:"id_livraison"`
	ModeLivraison string          `gorm:"size:20;not null" json:"mode_livraison"`
	PaymentIntent *string         `gorm:"size:255;uniqueIndex" json:"payment_intent,omitempty"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Lines         []OrderLine     `gorm:"foreignKey:OrderID" json:"articles,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Order) TableName() string { return "commande" }

// OrderLine freezes the unit price at finalization time.
type OrderLine struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"column:id_commande;not null;index" json:"id_commande"`
	ProductID    uint            `gorm:"column:id_produit;not null;index" json:"id_produit"`
	Quantite     int             `gorm:"not null" json:"quantite"`
	PrixUnitaire decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"prix_unitaire"`
}

func (OrderLine) TableName() string { return "commande_article" }

// Subtotal is quantity × frozen unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PrixUnitaire.Mul(decimal.NewFromInt(int64(l.Quantite)))
}
