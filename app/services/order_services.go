package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/metrics"
	"github.com/rituelsdebene/boutique/pkg/orm"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EventOrderFinalized is fired after the finalization transaction commits.
const EventOrderFinalized = "order.finalized"

// OrderFinalized is the payload of EventOrderFinalized.
type OrderFinalized struct {
	OrderID       uint
	UserID        uint
	Email         string
	Prenom        string
	ModeLivraison string
	Total         decimal.Decimal
	Lines         []models.OrderLine
}

// FinalizeInput carries the checkout choices of PUT /cart/payee.
type FinalizeInput struct {
	UserID        uint
	IDFacturation uint
	IDLivraison   uint
	ModeLivraison string
	PaymentIntent string
}

// PaymentVerifier confirms a PaymentIntent succeeded before an order is
// recorded against it.
type PaymentVerifier interface {
	VerifySucceeded(ctx context.Context, intentID string) error
}

// OrderDetail is the admin view of one order.
type OrderDetail struct {
	Order       models.Order                   `json:"commande"`
	Lines       []repositories.OrderLineDetail `json:"articles"`
	Livraison   *models.AddressFields          `json:"livraison"`
	Facturation *models.AddressFields          `json:"facturation"`
}

type OrderService struct {
	db        *gorm.DB
	orders    *repositories.OrderRepository
	users     *repositories.UserRepository
	addresses *repositories.AddressRepository
	payments  PaymentVerifier
}

// NewOrderService builds the finalizer. payments may be nil, in which case
// a PaymentIntent supplied by the client is recorded without verification.
func NewOrderService(db *gorm.DB, payments PaymentVerifier) *OrderService {
	return &OrderService{
		db:        db,
		orders:    repositories.NewOrderRepository(db),
		users:     repositories.NewUserRepository(db),
		addresses: repositories.NewAddressRepository(db),
		payments:  payments,
	}
}

var deliveryModes = map[string]bool{
	models.DeliveryColissimo:    true,
	models.DeliveryRelay:        true,
	models.DeliveryClickCollect: true,
}

type groupedLine struct {
	productID uint
	quantite  int
	prix      decimal.Decimal
}

// Finalize converts the user's unpaid cart into an order. Claim, order
// insert, line inserts, stock decrements and cart deletion commit together
// or not at all.
//
// A second call after a successful one finds nothing to claim and returns
// ErrAlreadyFinalized. A product without enough stock rolls the whole order
// back with a *StockShortage wrapping ErrInsufficientStock.
func (s *OrderService) Finalize(ctx context.Context, in FinalizeInput) (models.Order, error) {
	const op = "order.finalize"

	if err := s.validate(ctx, in); err != nil {
		s.reject(err)
		return models.Order{}, err
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Order{}, ErrUserNotFound
	}
	if err != nil {
		return models.Order{}, internal(op, err)
	}

	if in.PaymentIntent != "" && s.payments != nil {
		if err := s.payments.VerifySucceeded(ctx, in.PaymentIntent); err != nil {
			s.reject(err)
			return models.Order{}, err
		}
	}

	var order models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.finalizeTx(ctx, s.orders.WithTx(tx), in)
		return txErr
	})
	if err != nil {
		s.reject(err)
		if _, ok := err.(*Error); ok {
			return models.Order{}, err
		}
		var shortage *StockShortage
		if errors.As(err, &shortage) {
			return models.Order{}, &Error{
				Kind: KindConflict,
				Op:   op,
				Code: CodeInsufficientStock,
				Msg:  ErrInsufficientStock.Msg,
				Err:  shortage,
			}
		}
		return models.Order{}, internal(op, err)
	}

	logger.WithCtx(ctx).Info("order finalized",
		"order_id", order.ID,
		"user_id", order.UserID,
		"lines", len(order.Lines),
		"total", order.Total.StringFixed(2),
	)

	ForgetListings()

	event.Fire(EventOrderFinalized, OrderFinalized{
		OrderID:       order.ID,
		UserID:        user.ID,
		Email:         user.Email,
		Prenom:        user.Prenom,
		ModeLivraison: order.ModeLivraison,
		Total:         order.Total,
		Lines:         order.Lines,
	})
	return order, nil
}

func (s *OrderService) validate(ctx context.Context, in FinalizeInput) error {
	const op = "order.finalize"

	if !deliveryModes[in.ModeLivraison] {
		return validation(op, "Mode de livraison invalide")
	}
	if in.IDLivraison == 0 || in.IDFacturation == 0 {
		return validation(op, "Adresses de livraison et de facturation requises")
	}
	if _, err := s.addresses.Find(ctx, models.Shipping, in.IDLivraison); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validation(op, "Adresse de livraison inconnue")
		}
		return internal(op, err)
	}
	if _, err := s.addresses.Find(ctx, models.Billing, in.IDFacturation); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validation(op, "Adresse de facturation inconnue")
		}
		return internal(op, err)
	}
	if in.PaymentIntent != "" {
		done, err := s.orders.HasPaymentIntent(ctx, in.PaymentIntent)
		if err != nil {
			return internal(op, err)
		}
		if done {
			return ErrAlreadyFinalized
		}
	}
	return nil
}

func (s *OrderService) finalizeTx(ctx context.Context, orders *repositories.OrderRepository, in FinalizeInput) (models.Order, error) {
	token := uuid.NewString()

	claimed, err := orders.ClaimCart(ctx, in.UserID, token)
	if err != nil {
		return models.Order{}, fmt.Errorf("claim cart: %w", err)
	}
	if claimed == 0 {
		return models.Order{}, ErrAlreadyFinalized
	}

	rows, err := orders.ClaimedLines(ctx, token)
	if err != nil {
		return models.Order{}, fmt.Errorf("read claimed lines: %w", err)
	}

	grouped, err := groupLines(rows)
	if err != nil {
		return models.Order{}, err
	}

	total := decimal.Zero
	for _, g := range grouped {
		total = total.Add(g.prix.Mul(decimal.NewFromInt(int64(g.quantite))))
	}

	order := models.Order{
		UserID:        in.UserID,
		Payee:         true,
		Preparee:      false,
		IDFacturation: in.IDFacturation,
		IDLivraison:   in.IDLivraison,
		ModeLivraison: in.ModeLivraison,
		Total:         total,
	}
	if in.PaymentIntent != "" {
		pi := in.PaymentIntent
		order.PaymentIntent = &pi
	}
	if err := orders.Create(ctx, &order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Order{}, ErrAlreadyFinalized
		}
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, g := range grouped {
		line := models.OrderLine{
			OrderID:      order.ID,
			ProductID:    g.productID,
			Quantite:     g.quantite,
			PrixUnitaire: g.prix,
		}
		if err := orders.CreateLine(ctx, &line); err != nil {
			return models.Order{}, fmt.Errorf("insert line for product %d: %w", g.productID, err)
		}

		ok, err := orders.DecrementStock(ctx, g.productID, g.quantite)
		if err != nil {
			return models.Order{}, fmt.Errorf("decrement stock of product %d: %w", g.productID, err)
		}
		if !ok {
			return models.Order{}, &StockShortage{ProductID: g.productID, Requested: g.quantite}
		}
		order.Lines = append(order.Lines, line)
	}

	if _, err := orders.DeleteClaimed(ctx, token); err != nil {
		return models.Order{}, fmt.Errorf("clear cart: %w", err)
	}
	return order, nil
}

// groupLines sums quantities per product, keeping first-seen order.
func groupLines(rows []repositories.ClaimedLine) ([]groupedLine, error) {
	index := make(map[uint]int, len(rows))
	var out []groupedLine
	for _, row := range rows {
		if row.Prix == nil {
			return nil, fmt.Errorf("product %d has no sale unit", row.ProductID)
		}
		if i, ok := index[row.ProductID]; ok {
			out[i].quantite += row.Quantite
			continue
		}
		index[row.ProductID] = len(out)
		out = append(out, groupedLine{productID: row.ProductID, quantite: row.Quantite, prix: *row.Prix})
	}
	return out, nil
}

func (s *OrderService) reject(err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrAlreadyFinalized):
		reason = "already_finalized"
	case errors.Is(err, ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, ErrValidation):
		reason = "invalid"
	case errors.Is(err, ErrPaymentNotSucceeded):
		reason = "payment"
	}
	metrics.OrderRejections.WithLabelValues(reason).Inc()
}

// List pages through every order, newest first.
func (s *OrderService) List(ctx context.Context, page, limit int) ([]repositories.OrderSummary, orm.Pagination, error) {
	out, p, err := s.orders.Summaries(ctx, page, limit)
	if err != nil {
		return nil, orm.Pagination{}, internal("order.list", err)
	}
	return out, p, nil
}

// Detail loads one order with its lines and both addresses.
func (s *OrderService) Detail(ctx context.Context, id uint) (OrderDetail, error) {
	const op = "order.detail"

	order, err := s.orders.Find(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return OrderDetail{}, notFound(op, "Commande introuvable")
	}
	if err != nil {
		return OrderDetail{}, internal(op, err)
	}

	lines, err := s.orders.Lines(ctx, id)
	if err != nil {
		return OrderDetail{}, internal(op, err)
	}

	detail := OrderDetail{Order: order, Lines: lines}
	if f, err := s.addresses.Find(ctx, models.Shipping, order.IDLivraison); err == nil {
		detail.Livraison = &f
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return OrderDetail{}, internal(op, err)
	}
	if f, err := s.addresses.Find(ctx, models.Billing, order.IDFacturation); err == nil {
		detail.Facturation = &f
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return OrderDetail{}, internal(op, err)
	}
	return detail, nil
}

// finalizeTimeout bounds the transaction when the caller set no deadline.
const finalizeTimeout = 15 * time.Second

// WithFinalizeDeadline returns ctx bounded by finalizeTimeout unless it
// already carries a deadline.
func WithFinalizeDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, finalizeTimeout)
}
