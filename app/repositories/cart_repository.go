package repositories

import (
	"context"
	"time"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/orm"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartItem is a cart line hydrated with product and sale unit data.
type CartItem struct {
	ProductID        uint            `gorm:"column:id_produit" json:"id_produit"`
	Nom              string          `json:"nom"`
	Prix             decimal.Decimal `json:"prix"`
	Quantite         int             `json:"quantite"`
	Stock            int             `json:"quantite_stock"`
	QuantiteEnG      *int            `json:"quantite_en_g"`
	QuantiteEnSachet *int            `json:"quantite_en_sachet"`
	ModeVente        string          `gorm:"-" json:"mode_vente"`
}

// CartEntry is a (product, quantity) pair to merge into a cart.
type CartEntry struct {
	ProductID uint
	Quantite  int
}

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// WithTx binds the repository to tx.
func (r *CartRepository) WithTx(tx *gorm.DB) *CartRepository {
	return &CartRepository{db: tx}
}

func (r *CartRepository) upsert(ctx context.Context, userID, productID uint, qty int, onConflict clause.Expr) error {
	now := time.Now()
	line := models.CartLine{UserID: userID, ProductID: productID, Quantite: qty}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id_utilisateur"}, {Name: "id_produit"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantite":   onConflict,
			"updated_at": now,
		}),
	}).Create(&line).Error
}

// Increment adds qty to the user's line for productID, creating it if needed.
func (r *CartRepository) Increment(ctx context.Context, userID, productID uint, qty int) error {
	return r.upsert(ctx, userID, productID, qty, gorm.Expr("cart.quantite + ?", qty))
}

// Set overwrites the line's quantity, creating it if needed.
func (r *CartRepository) Set(ctx context.Context, userID, productID uint, qty int) error {
	return r.upsert(ctx, userID, productID, qty, gorm.Expr("?", qty))
}

// Raise sets the line to max(current, qty), creating it if needed.
func (r *CartRepository) Raise(ctx context.Context, userID, productID uint, qty int) error {
	return r.upsert(ctx, userID, productID, qty,
		gorm.Expr("CASE WHEN cart.quantite < ? THEN ? ELSE cart.quantite END", qty, qty))
}

// Remove deletes the user's unpaid line for productID and reports how many
// rows went away.
func (r *CartRepository) Remove(ctx context.Context, userID, productID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id_utilisateur = ? AND id_produit = ? AND payee = ?", userID, productID, false).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// Items returns the user's unpaid cart hydrated with product data.
func (r *CartRepository) Items(ctx context.Context, userID uint) ([]CartItem, error) {
	var items []CartItem
	err := orm.On(r.db).WithContext(ctx).
		Table("cart").
		Select(`cart.id_produit, produit.nom, unite_vente.prix, cart.quantite,
			unite_vente.quantite_stock AS stock, unite_vente.quantite_en_g, unite_vente.quantite_en_sachet`).
		Joins("JOIN produit ON produit.id = cart.id_produit").
		Joins("JOIN unite_vente ON unite_vente.id_produit = cart.id_produit").
		Where("cart.id_utilisateur = ? AND cart.payee = ?", userID, false).
		Order("cart.id").
		Scan(&items)
	for i := range items {
		if items[i].QuantiteEnG != nil {
			items[i].ModeVente = models.ModeGramme
		} else {
			items[i].ModeVente = models.ModeBoite
		}
	}
	return items, err
}

// LinkAddresses points every unpaid line of the user at the given
// addresses. A nil id leaves that column untouched.
func (r *CartRepository) LinkAddresses(ctx context.Context, userID uint, shippingID, billingID *uint) (int64, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if shippingID != nil {
		updates["id_livraison"] = *shippingID
	}
	if billingID != nil {
		updates["id_facturation"] = *billingID
	}
	res := r.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id_utilisateur = ? AND payee = ?", userID, false).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// Latest returns the user's most recently updated cart line.
func (r *CartRepository) Latest(ctx context.Context, userID uint) (models.CartLine, error) {
	var line models.CartLine
	err := orm.On(r.db).WithContext(ctx).
		Where("id_utilisateur = ?", userID).
		Order("updated_at DESC").Order("id DESC").
		First(&line)
	return line, translate(err)
}
