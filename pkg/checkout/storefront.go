package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpc "github.com/rituelsdebene/boutique/pkg/http"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyFinalized is returned by Finalize when the storefront answers
	// 409 already_finalized: the cart was already turned into an order.
	ErrAlreadyFinalized = errors.New("checkout: order already finalized")
	// ErrInsufficientStock is returned by Finalize when the order was rolled
	// back for lack of stock. The cart is still unpaid.
	ErrInsufficientStock = errors.New("checkout: insufficient stock")
)

const (
	codeAlreadyFinalized  = "already_finalized"
	codeInsufficientStock = "insufficient_stock"
)

type FinalizeRequest struct {
	IDFacturation uint   `json:"idFacturation"`
	IDLivraison   uint   `json:"idLivraison"`
	ModeLivraison string `json:"modeLivraison"`
	PaymentIntent string `json:"paymentIntent,omitempty"`
}

type Receipt struct {
	Message string          `json:"message"`
	OrderID uint            `json:"id_commande"`
	Total   decimal.Decimal `json:"total"`
}

// APIError is a non-2xx storefront answer.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkout: storefront answered %d: %s", e.Status, e.Message)
}

type envelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Data    T      `json:"data"`
}

// Storefront calls the storefront REST API as the signed-in buyer.
type Storefront struct {
	baseURL string
	timeout time.Duration
}

func NewStorefront(baseURL string) *Storefront {
	return &Storefront{baseURL: strings.TrimRight(baseURL, "/"), timeout: 15 * time.Second}
}

// Timeout overrides the per-call deadline.
func (s *Storefront) Timeout(d time.Duration) *Storefront {
	s.timeout = d
	return s
}

func (s *Storefront) PersistRelayPoint(ctx context.Context, token string, p RelayPoint) (uint, error) {
	var out envelope[struct {
		IDLivraison uint `json:"idLivraison"`
	}]
	if err := s.send(ctx, httpc.Post(s.baseURL+"/adresse-point-relais"), token, p, &out); err != nil {
		return 0, err
	}
	return out.Data.IDLivraison, nil
}

// Finalize issues PUT /cart/payee once; it is never retried. Only a 409
// carrying the already_finalized code maps to ErrAlreadyFinalized; any other
// conflict is a failure the caller can retry.
func (s *Storefront) Finalize(ctx context.Context, token string, req FinalizeRequest) (Receipt, error) {
	var out envelope[Receipt]
	err := s.send(ctx, httpc.Put(s.baseURL+"/cart/payee"), token, req, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		switch apiErr.Code {
		case codeAlreadyFinalized:
			return Receipt{}, fmt.Errorf("%w: %s", ErrAlreadyFinalized, apiErr.Message)
		case codeInsufficientStock:
			return Receipt{}, fmt.Errorf("%w: %w", ErrInsufficientStock, apiErr)
		}
	}
	if err != nil {
		return Receipt{}, err
	}
	return out.Data, nil
}

func (s *Storefront) send(ctx context.Context, req *httpc.Request, token string, body, dest interface{}) error {
	resp, err := req.WithContext(ctx).
		Bearer(token).
		Body(body).
		Timeout(s.timeout).
		Retry(1, 0).
		Send()
	if err != nil {
		return err
	}
	if !resp.OK() {
		var e envelope[struct{}]
		_ = resp.JSON(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
	}
	return resp.JSON(dest)
}
