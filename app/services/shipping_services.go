package services

import (
	"context"
	"regexp"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/pkg/mondialrelay"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Parcel weight heuristic, in grams.
const (
	baseWeight     = 250
	freeItems      = 2
	perExtraWeight = 50
)

var postcodePattern = regexp.MustCompile(`^\d{5}$`)

// RelaySearcher finds pickup points near a postcode.
type RelaySearcher interface {
	Search(ctx context.Context, postcode string) ([]mondialrelay.Point, error)
}

// Quote is a shipping cost estimate. Prix is nil when no Colissimo bracket
// covers the parcel.
type Quote struct {
	Mode  string           `json:"mode"`
	Poids int              `json:"poids"`
	Prix  *decimal.Decimal `json:"prix"`
}

type ShippingService struct {
	tariffs   *repositories.TariffRepository
	relay     RelaySearcher
	relayRate decimal.Decimal
}

// NewShippingService builds the resolver. relayRate is the Mondial Relay
// flat price; an unparsable value falls back to 3.90.
func NewShippingService(db *gorm.DB, relay RelaySearcher, relayRate string) *ShippingService {
	rate, err := decimal.NewFromString(relayRate)
	if err != nil {
		rate = decimal.RequireFromString("3.90")
	}
	return &ShippingService{
		tariffs:   repositories.NewTariffRepository(db),
		relay:     relay,
		relayRate: rate,
	}
}

// WeightForItems estimates the parcel weight of n articles: the first two
// ride in the base weight, each further one adds 50 g. An empty cart weighs 0.
func WeightForItems(n int) int {
	if n <= 0 {
		return 0
	}
	extra := n - freeItems
	if extra < 0 {
		extra = 0
	}
	return baseWeight + extra*perExtraWeight
}

// QuoteFromBrackets returns the price of the smallest bracket whose limit
// covers weight, or nil when the parcel is heavier than every bracket.
func QuoteFromBrackets(brackets []models.ColissimoTariff, weight int) *decimal.Decimal {
	var best *models.ColissimoTariff
	for i := range brackets {
		b := &brackets[i]
		if b.PoidsMax < weight {
			continue
		}
		if best == nil || b.PoidsMax < best.PoidsMax {
			best = b
		}
	}
	if best == nil {
		return nil
	}
	p := best.Prix
	return &p
}

// QuoteColissimo prices a parcel of weight grams.
func (s *ShippingService) QuoteColissimo(ctx context.Context, weight int) (*decimal.Decimal, error) {
	const op = "shipping.colissimo"
	if weight < 0 {
		return nil, validation(op, "Poids invalide")
	}

	brackets, err := s.tariffs.All(ctx)
	if err != nil {
		return nil, internal(op, err)
	}
	return QuoteFromBrackets(brackets, weight), nil
}

// QuoteRelay is the flat Mondial Relay price.
func (s *ShippingService) QuoteRelay() decimal.Decimal { return s.relayRate }

// QuoteClickAndCollect is always free.
func (s *ShippingService) QuoteClickAndCollect() decimal.Decimal { return decimal.Zero }

// Quote estimates shipping for n articles with the given delivery mode.
func (s *ShippingService) Quote(ctx context.Context, mode string, n int) (Quote, error) {
	const op = "shipping.quote"
	if !deliveryModes[mode] {
		return Quote{}, validation(op, "Mode de livraison invalide")
	}
	if n < 0 {
		return Quote{}, validation(op, "Nombre d'articles invalide")
	}

	q := Quote{Mode: mode, Poids: WeightForItems(n)}
	if n == 0 {
		zero := decimal.Zero
		q.Prix = &zero
		return q, nil
	}

	switch mode {
	case models.DeliveryColissimo:
		prix, err := s.QuoteColissimo(ctx, q.Poids)
		if err != nil {
			return Quote{}, err
		}
		q.Prix = prix
	case models.DeliveryRelay:
		prix := s.QuoteRelay()
		q.Prix = &prix
	case models.DeliveryClickCollect:
		prix := s.QuoteClickAndCollect()
		q.Prix = &prix
	}
	return q, nil
}

// RelayPoints lists Mondial Relay pickup points for a 5-digit postcode.
func (s *ShippingService) RelayPoints(ctx context.Context, postcode string) ([]mondialrelay.Point, error) {
	const op = "shipping.relay_points"
	if !postcodePattern.MatchString(postcode) {
		return nil, validation(op, "Code postal invalide")
	}
	if s.relay == nil {
		return nil, newError(KindUpstream, op, "Service externe indisponible", nil)
	}

	points, err := s.relay.Search(ctx, postcode)
	if err != nil {
		return nil, upstream(op, err)
	}
	return points, nil
}
