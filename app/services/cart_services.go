package services

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"gorm.io/gorm"
)

// Reasons a sync entry was left out of the merged cart.
const (
	SkipInvalidProduct  = "invalid_product"
	SkipInvalidQuantity = "invalid_quantity"
	SkipUnknownProduct  = "unknown_product"
	SkipOutOfStock      = "out_of_stock"
)

type CartLineInput struct {
	IDProduit uint `json:"id_produit" validate:"required"`
	Quantite  int  `json:"quantite" validate:"required,gte=1"`
}

// SyncEntry is one line of a client-side cart. Both fields arrive as
// whatever the browser stored, so they are decoded loosely.
type SyncEntry struct {
	IDProduit json.RawMessage `json:"id_produit"`
	ID        json.RawMessage `json:"id"`
	Quantite  json.RawMessage `json:"quantite"`
}

// Skipped explains why a sync entry was not merged.
type Skipped struct {
	IDProduit json.RawMessage `json:"id_produit"`
	Raison    string          `json:"raison"`
}

// SyncResult is the authoritative cart after a merge.
type SyncResult struct {
	Panier  []repositories.CartItem `json:"panier"`
	Ignores []Skipped               `json:"ignores"`
}

type CartService struct {
	db       *gorm.DB
	carts    *repositories.CartRepository
	products *repositories.ProductRepository
	users    *repositories.UserRepository
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{
		db:       db,
		carts:    repositories.NewCartRepository(db),
		products: repositories.NewProductRepository(db),
		users:    repositories.NewUserRepository(db),
	}
}

func (s *CartService) ensureUser(ctx context.Context, op string, userID uint) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return internal(op, err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *CartService) ensureProduct(ctx context.Context, op string, productID uint) error {
	stocks, err := s.products.Stocks(ctx, []uint{productID})
	if err != nil {
		return internal(op, err)
	}
	if _, ok := stocks[productID]; !ok {
		return notFound(op, "Produit introuvable")
	}
	return nil
}

// Add increments the user's line for a product, creating it when absent.
// Stock is not checked here; finalization enforces it.
func (s *CartService) Add(ctx context.Context, userID uint, in CartLineInput) error {
	const op = "cart.add"
	if in.Quantite < 1 {
		return validation(op, "Quantité invalide")
	}
	if err := s.ensureUser(ctx, op, userID); err != nil {
		return err
	}
	if err := s.ensureProduct(ctx, op, in.IDProduit); err != nil {
		return err
	}
	if err := s.carts.Increment(ctx, userID, in.IDProduit, in.Quantite); err != nil {
		return internal(op, err)
	}
	return nil
}

// SetQuantity overwrites the line's quantity, creating it when absent.
func (s *CartService) SetQuantity(ctx context.Context, userID uint, in CartLineInput) error {
	const op = "cart.set_quantity"
	if in.Quantite < 1 {
		return validation(op, "Quantité invalide")
	}
	if err := s.ensureUser(ctx, op, userID); err != nil {
		return err
	}
	if err := s.ensureProduct(ctx, op, in.IDProduit); err != nil {
		return err
	}
	if err := s.carts.Set(ctx, userID, in.IDProduit, in.Quantite); err != nil {
		return internal(op, err)
	}
	return nil
}

// Remove deletes the user's unpaid line for productID.
func (s *CartService) Remove(ctx context.Context, userID, productID uint) error {
	const op = "cart.remove"
	n, err := s.carts.Remove(ctx, userID, productID)
	if err != nil {
		return internal(op, err)
	}
	if n == 0 {
		return notFound(op, "Article introuvable dans le panier")
	}
	return nil
}

// Items returns the user's unpaid cart.
func (s *CartService) Items(ctx context.Context, userID uint) ([]repositories.CartItem, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, internal("cart.items", err)
	}
	if items == nil {
		items = []repositories.CartItem{}
	}
	return items, nil
}

type resolvedEntry struct {
	raw       json.RawMessage
	productID uint
	quantite  int
}

// Sync merges a client cart into the stored one. Each valid entry raises
// the stored quantity to max(stored, proposed); entries that cannot be
// merged are reported in Ignores and leave storage untouched.
func (s *CartService) Sync(ctx context.Context, userID uint, entries []SyncEntry) (SyncResult, error) {
	const op = "cart.sync"
	if err := s.ensureUser(ctx, op, userID); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Ignores: []Skipped{}}
	var valid []resolvedEntry
	var ids []uint

	for _, e := range entries {
		raw := e.IDProduit
		if len(raw) == 0 || string(raw) == "null" {
			raw = e.ID
		}
		id, ok := positiveInt(raw)
		if !ok || id > math.MaxUint32 {
			result.Ignores = append(result.Ignores, Skipped{IDProduit: raw, Raison: SkipInvalidProduct})
			continue
		}
		qty, ok := positiveInt(e.Quantite)
		if !ok || qty > math.MaxInt32 {
			result.Ignores = append(result.Ignores, Skipped{IDProduit: raw, Raison: SkipInvalidQuantity})
			continue
		}
		valid = append(valid, resolvedEntry{raw: raw, productID: uint(id), quantite: int(qty)})
		ids = append(ids, uint(id))
	}

	stocks, err := s.products.Stocks(ctx, ids)
	if err != nil {
		return SyncResult{}, internal(op, err)
	}

	var merge []resolvedEntry
	for _, e := range valid {
		stock, known := stocks[e.productID]
		switch {
		case !known:
			result.Ignores = append(result.Ignores, Skipped{IDProduit: e.raw, Raison: SkipUnknownProduct})
		case stock <= 0:
			result.Ignores = append(result.Ignores, Skipped{IDProduit: e.raw, Raison: SkipOutOfStock})
		default:
			merge = append(merge, e)
		}
	}

	if len(merge) > 0 {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			carts := s.carts.WithTx(tx)
			for _, e := range merge {
				if err := carts.Raise(ctx, userID, e.productID, e.quantite); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return SyncResult{}, internal(op, err)
		}
	}

	if len(result.Ignores) > 0 {
		logger.WithCtx(ctx).Info("cart sync skipped entries", "user_id", userID, "skipped", len(result.Ignores))
	}

	result.Panier, err = s.Items(ctx, userID)
	if err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

// positiveInt accepts a JSON integer or a numeric string greater than zero.
func positiveInt(raw json.RawMessage) (uint64, bool) {
	var n json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil || n == "" {
		return 0, false
	}

	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) || f <= 0 || f > math.MaxInt64 {
			return 0, false
		}
		v = uint64(f)
	}
	return v, v > 0
}
