package repositories

import (
	"context"
	"time"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/metrics"
	"github.com/rituelsdebene/boutique/pkg/orm"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClaimedLine is a cart line claimed for finalization, priced at the
// current sale unit price. Prix is nil when the product has no sale unit.
type ClaimedLine struct {
	ProductID uint             `gorm:"column:id_produit"`
	Quantite  int              `gorm:"column:quantite"`
	Prix      *decimal.Decimal `gorm:"column:prix"`
}

// OrderSummary is one row of the admin order list.
type OrderSummary struct {
	ID            uint            `json:"id"`
	Email         string          `json:"email"`
	ModeLivraison string          `json:"mode_livraison"`
	Payee         bool            `json:"payee"`
	Preparee      bool            `json:"preparee"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderLineDetail is an order line with its product name.
type OrderLineDetail struct {
	ProductID    uint            `gorm:"column:id_produit" json:"id_produit"`
	Nom          string          `json:"nom"`
	Quantite     int             `json:"quantite"`
	PrixUnitaire decimal.Decimal `json:"prix_unitaire"`
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx binds the repository to tx.
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// ClaimCart marks every unpaid line of the user as paid and tags it with
// token in a single statement. Zero means another finalization already
// took the cart, or the cart is empty.
func (r *OrderRepository) ClaimCart(ctx context.Context, userID uint, token string) (int64, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	res := r.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id_utilisateur = ? AND payee = ?", userID, false).
		Updates(map[string]interface{}{"payee": true, "jeton": token})
	return res.RowsAffected, res.Error
}

// ClaimedLines reads the lines tagged with token joined with current prices.
func (r *OrderRepository) ClaimedLines(ctx context.Context, token string) ([]ClaimedLine, error) {
	var lines []ClaimedLine
	err := orm.On(r.db).WithContext(ctx).
		Table("cart").
		Select("cart.id_produit, cart.quantite, unite_vente.prix").
		Joins("LEFT JOIN unite_vente ON unite_vente.id_produit = cart.id_produit").
		Where("cart.jeton = ?", token).
		Order("cart.id").
		Scan(&lines)
	return lines, err
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	return r.db.WithContext(ctx).Omit("Lines").Create(order).Error
}

func (r *OrderRepository) CreateLine(ctx context.Context, line *models.OrderLine) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	return r.db.WithContext(ctx).Create(line).Error
}

// DecrementStock removes qty from the product's stock only if at least qty
// remain. It reports whether the decrement happened.
func (r *OrderRepository) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	res := r.db.WithContext(ctx).Model(&models.SaleUnit{}).
		Where("id_produit = ? AND quantite_stock >= ?", productID, qty).
		UpdateColumn("quantite_stock", gorm.Expr("quantite_stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

// DeleteClaimed removes the lines tagged with token.
func (r *OrderRepository) DeleteClaimed(ctx context.Context, token string) (int64, error) {
	defer metrics.ObserveDBQuery("delete", time.Now())
	res := r.db.WithContext(ctx).Where("jeton = ?", token).Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// HasPaymentIntent reports whether an order already records intent.
func (r *OrderRepository) HasPaymentIntent(ctx context.Context, intent string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("payment_intent = ?", intent).Count(&n).Error
	return n > 0, err
}

// Summaries pages through orders newest first.
func (r *OrderRepository) Summaries(ctx context.Context, page, limit int) ([]OrderSummary, orm.Pagination, error) {
	var out []OrderSummary
	p, err := orm.On(r.db).WithContext(ctx).
		Table("commande").
		Select(`commande.id, utilisateur.email, commande.mode_livraison, commande.payee,
			commande.preparee, commande.total, commande.created_at`).
		Joins("JOIN utilisateur ON utilisateur.id = commande.id_utilisateur").
		Order("commande.created_at DESC").Order("commande.id DESC").
		Paginate(&out, page, limit)
	return out, p, err
}

func (r *OrderRepository) Find(ctx context.Context, id uint) (models.Order, error) {
	var order models.Order
	err := orm.On(r.db).WithContext(ctx).Where("id = ?", id).First(&order)
	return order, translate(err)
}

// Lines returns the order's lines with product names.
func (r *OrderRepository) Lines(ctx context.Context, orderID uint) ([]OrderLineDetail, error) {
	var out []OrderLineDetail
	err := orm.On(r.db).WithContext(ctx).
		Table("commande_article").
		Select("commande_article.id_produit, produit.nom, commande_article.quantite, commande_article.prix_unitaire").
		Joins("JOIN produit ON produit.id = commande_article.id_produit").
		Where("commande_article.id_commande = ?", orderID).
		Order("commande_article.id").
		Scan(&out)
	return out, err
}

// LinesOf returns the raw lines of an order.
func (r *OrderRepository) LinesOf(ctx context.Context, orderID uint) ([]models.OrderLine, error) {
	var out []models.OrderLine
	err := orm.On(r.db).WithContext(ctx).Where("id_commande = ?", orderID).Order("id").Get(&out)
	return out, err
}
