package models

import "time"

// CartLine is one product in a user's cart. A line is claimed by the order
// finalizer (Payee=true, Jeton set) inside the transaction that converts it
// to an order line and deletes it, so a committed line is always unpaid.
type CartLine struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"column:id_utilisateur;not null;uniqueIndex:ux_cart_user_product,priority:1" json:"id_utilisateur"`
	ProductID     uint      `gorm:"column:id_produit;not null;uniqueIndex:ux_cart_user_product,priority:2;index" json:"id_produit"`
	Quantite      int       `gorm:"not null" json:"quantite"`
	Payee         bool      `gorm:"not null;default:false" json:"payee"`
	Jeton         *string   `gorm:"size:36;index" json:"-"`
	IDFacturation *uint     `gorm:"column:id_facturation" json:"id_facturation"`
	IDLivraison   *uint     `gorm:"column:id_livraison" json:"id_livraison"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CartLine) TableName() string { return "cart" }
