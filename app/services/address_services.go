package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/pkg/validate"
	"gorm.io/gorm"
)

// AddressInput is an address as typed in the checkout form.
type AddressInput struct {
	Prenom            string `json:"prenom" validate:"required,max=100"`
	Nom               string `json:"nom" validate:"required,max=100"`
	Adresse           string `json:"adresse" validate:"required,max=255"`
	ComplementAdresse string `json:"complement_adresse" validate:"nullable,max=255"`
	CodePostal        string `json:"code_postal" validate:"required,digits=5"`
	Ville             string `json:"ville" validate:"required,max=100"`
	Pays              string `json:"pays" validate:"nullable,max=60"`
	Telephone         string `json:"telephone" validate:"required,max=30"`
	Instructions      string `json:"instructions" validate:"nullable,max=500"`
}

// Fields normalizes the input: surrounding blanks are dropped and a
// missing country means France.
func (in AddressInput) Fields() models.AddressFields {
	f := models.AddressFields{
		Prenom:            strings.TrimSpace(in.Prenom),
		Nom:               strings.TrimSpace(in.Nom),
		Adresse:           strings.TrimSpace(in.Adresse),
		ComplementAdresse: strings.TrimSpace(in.ComplementAdresse),
		CodePostal:        strings.TrimSpace(in.CodePostal),
		Ville:             strings.TrimSpace(in.Ville),
		Pays:              strings.TrimSpace(in.Pays),
		Telephone:         strings.TrimSpace(in.Telephone),
		Instructions:      strings.TrimSpace(in.Instructions),
	}
	if f.Pays == "" {
		f.Pays = "France"
	}
	return f
}

// PersistInput is the body of POST /persist-adresses. A nil Facturation
// bills to the shipping address.
type PersistInput struct {
	Livraison     AddressInput  `json:"livraison" validate:"required,dive"`
	Facturation   *AddressInput `json:"facturation" validate:"nullable,dive"`
	ModeLivraison string        `json:"modeLivraison" validate:"nullable,in=colissimo|relais|retrait"`
}

// PersistedAddresses are the ids linked to the cart.
type PersistedAddresses struct {
	IDLivraison   uint `json:"idLivraison"`
	IDFacturation uint `json:"idFacturation"`
}

// RelayPointInput is a Mondial Relay pickup point chosen at checkout.
type RelayPointInput struct {
	Num    string `json:"Num" validate:"required,max=20"`
	LgAdr1 string `json:"LgAdr1" validate:"required,max=100"`
	LgAdr3 string `json:"LgAdr3" validate:"required,max=255"`
	CP     string `json:"CP" validate:"required,digits=5"`
	Ville  string `json:"Ville" validate:"required,max=100"`
}

// AddressView is an address with its row id.
type AddressView struct {
	ID uint `json:"id"`
	models.AddressFields
}

var errNoOpenCart = errors.New("no open cart")

type AddressService struct {
	db        *gorm.DB
	addresses *repositories.AddressRepository
	carts     *repositories.CartRepository
	users     *repositories.UserRepository
}

func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{
		db:        db,
		addresses: repositories.NewAddressRepository(db),
		carts:     repositories.NewCartRepository(db),
		users:     repositories.NewUserRepository(db),
	}
}

// FindOrCreate returns the id of the address with exactly these fields,
// inserting it if none exists. Billing addresses carry no instructions.
func (s *AddressService) FindOrCreate(ctx context.Context, kind models.AddressKind, f models.AddressFields) (uint, error) {
	if kind == models.Billing {
		f.Instructions = ""
	}
	id, err := s.addresses.FindOrCreate(ctx, kind, f)
	if err != nil {
		return 0, internal("address.find_or_create", err)
	}
	return id, nil
}

// GetLatest returns the address of kind linked to the user's most recently
// updated cart line, or the one used by their last order once the cart is
// gone.
func (s *AddressService) GetLatest(ctx context.Context, kind models.AddressKind, userID uint) (AddressView, error) {
	op := "address.latest_" + string(kind)

	var id uint
	line, err := s.carts.Latest(ctx, userID)
	switch {
	case err == nil:
		if kind == models.Billing && line.IDFacturation != nil {
			id = *line.IDFacturation
		}
		if kind == models.Shipping && line.IDLivraison != nil {
			id = *line.IDLivraison
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return AddressView{}, internal(op, err)
	}

	if id == 0 {
		id, err = s.addresses.LatestOrderAddressID(ctx, kind, userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return AddressView{}, notFound(op, "Aucune adresse enregistrée")
		}
		if err != nil {
			return AddressView{}, internal(op, err)
		}
	}

	f, err := s.addresses.Find(ctx, kind, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return AddressView{}, notFound(op, "Aucune adresse enregistrée")
	}
	if err != nil {
		return AddressView{}, internal(op, err)
	}
	return AddressView{ID: id, AddressFields: f}, nil
}

// Update points the user's current cart at an address holding the new
// fields. Address rows may be shared by several carts and orders, so the
// old row is left as it is.
func (s *AddressService) Update(ctx context.Context, kind models.AddressKind, userID uint, in AddressInput) (AddressView, error) {
	op := "address.update_" + string(kind)

	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return AddressView{}, &ValidationErrors{Op: op, Fields: errs}
	}

	f := in.Fields()
	if kind == models.Billing {
		f.Instructions = ""
	}

	// The address is only kept when a cart takes it.
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if id, err = repositories.NewAddressRepository(tx).FindOrCreate(ctx, kind, f); err != nil {
			return err
		}
		var shipping, billing *uint
		if kind == models.Shipping {
			shipping = &id
		} else {
			billing = &id
		}
		n, err := s.carts.WithTx(tx).LinkAddresses(ctx, userID, shipping, billing)
		if err != nil {
			return err
		}
		if n == 0 {
			return errNoOpenCart
		}
		return nil
	})
	if errors.Is(err, errNoOpenCart) {
		return AddressView{}, notFound(op, "Aucun panier en cours")
	}
	if err != nil {
		return AddressView{}, internal(op, err)
	}
	return AddressView{ID: id, AddressFields: f}, nil
}

// Persist dedups the checkout addresses and links them to the user's
// unpaid cart lines.
func (s *AddressService) Persist(ctx context.Context, userID uint, in PersistInput) (PersistedAddresses, error) {
	const op = "address.persist"

	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return PersistedAddresses{}, &ValidationErrors{Op: op, Fields: errs}
	}
	if err := s.ensureUser(ctx, op, userID); err != nil {
		return PersistedAddresses{}, err
	}

	shippingFields := in.Livraison.Fields()
	billingFields := shippingFields
	if in.Facturation != nil {
		billingFields = in.Facturation.Fields()
	}

	var out PersistedAddresses
	var err error
	if out.IDLivraison, err = s.FindOrCreate(ctx, models.Shipping, shippingFields); err != nil {
		return PersistedAddresses{}, err
	}
	if out.IDFacturation, err = s.FindOrCreate(ctx, models.Billing, billingFields); err != nil {
		return PersistedAddresses{}, err
	}

	if _, err := s.carts.LinkAddresses(ctx, userID, &out.IDLivraison, &out.IDFacturation); err != nil {
		return PersistedAddresses{}, internal(op, err)
	}
	return out, nil
}

// PersistRelayPoint stores a pickup point as a shipping address in the
// user's name and links it to the cart.
func (s *AddressService) PersistRelayPoint(ctx context.Context, userID uint, in RelayPointInput) (uint, error) {
	const op = "address.persist_relay"

	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return 0, &ValidationErrors{Op: op, Fields: errs}
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, internal(op, err)
	}

	f := models.AddressFields{
		Prenom:       user.Prenom,
		Nom:          user.Nom,
		Adresse:      strings.TrimSpace(in.LgAdr3),
		CodePostal:   strings.TrimSpace(in.CP),
		Ville:        strings.TrimSpace(in.Ville),
		Pays:         "France",
		Instructions: "Point Relais " + strings.TrimSpace(in.Num) + " - " + strings.TrimSpace(in.LgAdr1),
	}
	id, err := s.FindOrCreate(ctx, models.Shipping, f)
	if err != nil {
		return 0, err
	}
	if _, err := s.carts.LinkAddresses(ctx, userID, &id, nil); err != nil {
		return 0, internal(op, err)
	}
	return id, nil
}

func (s *AddressService) ensureUser(ctx context.Context, op string, userID uint) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return internal(op, err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
