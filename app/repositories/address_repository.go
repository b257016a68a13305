package repositories

import (
	"context"
	"fmt"

	"github.com/rituelsdebene/boutique/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AddressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func table(kind models.AddressKind) (string, error) {
	switch kind {
	case models.Shipping, models.Billing:
		return string(kind), nil
	default:
		return "", fmt.Errorf("unknown address kind %q", kind)
	}
}

func newRow(kind models.AddressKind, f models.AddressFields) interface{} {
	if kind == models.Billing {
		return &models.BillingAddress{AddressFields: f, Empreinte: f.Fingerprint()}
	}
	return &models.ShippingAddress{AddressFields: f, Empreinte: f.Fingerprint()}
}

// idByFingerprint returns 0 when no row matches.
func (r *AddressRepository) idByFingerprint(ctx context.Context, name, fp string) (uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table(name).Where("empreinte = ?", fp).Limit(1).Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

// FindOrCreate returns the id of the row holding exactly f, inserting it
// first if needed. Concurrent callers with the same fields converge on one
// row through the unique fingerprint index.
func (r *AddressRepository) FindOrCreate(ctx context.Context, kind models.AddressKind, f models.AddressFields) (uint, error) {
	name, err := table(kind)
	if err != nil {
		return 0, err
	}
	fp := f.Fingerprint()

	if id, err := r.idByFingerprint(ctx, name, fp); err != nil || id != 0 {
		return id, err
	}

	row := newRow(kind, f)
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "empreinte"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return 0, err
	}

	id, err := r.idByFingerprint(ctx, name, fp)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("address %s vanished after insert", fp[:12])
	}
	return id, nil
}

// Find loads the fields of one address.
func (r *AddressRepository) Find(ctx context.Context, kind models.AddressKind, id uint) (models.AddressFields, error) {
	var f models.AddressFields
	switch kind {
	case models.Billing:
		var row models.BillingAddress
		err := r.db.WithContext(ctx).First(&row, id).Error
		f = row.AddressFields
		return f, translate(err)
	case models.Shipping:
		var row models.ShippingAddress
		err := r.db.WithContext(ctx).First(&row, id).Error
		f = row.AddressFields
		return f, translate(err)
	}
	return f, fmt.Errorf("unknown address kind %q", kind)
}

// LatestOrderAddressID returns the address id used by the user's newest
// order, or ErrNotFound.
func (r *AddressRepository) LatestOrderAddressID(ctx context.Context, kind models.AddressKind, userID uint) (uint, error) {
	column := "id_livraison"
	if kind == models.Billing {
		column = "id_facturation"
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id_utilisateur = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(1).
		Pluck(column, &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 || ids[0] == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}
