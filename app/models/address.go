package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// AddressKind selects the table an address lives in.
type AddressKind string

const (
	Shipping AddressKind = "livraison"
	Billing  AddressKind = "facturation"
)

// AddressFields is the field set shared by shipping and billing addresses.
// Two rows with identical fields are the same address.
type AddressFields struct {
	Prenom            string `gorm:"size:100;not null;default:''" json:"prenom"`
	Nom               string `gorm:"size:100;not null;default:''" json:"nom"`
	Adresse           string `gorm:"size:255;not null;default:''" json:"adresse"`
	ComplementAdresse string `gorm:"size:255;not null;default:''" json:"complement_adresse"`
	CodePostal        string `gorm:"size:5;not null;default:''" json:"code_postal"`
	Ville             string `gorm:"size:100;not null;default:''" json:"ville"`
	Pays              string `gorm:"size:60;not null;default:''" json:"pays"`
	Telephone         string `gorm:"size:30;not null;default:''" json:"telephone"`
	Instructions      string `gorm:"size:500;not null;default:''" json:"instructions"`
}

// Fingerprint hashes the exact field values. Billing addresses never carry
// instructions, so callers clear them before fingerprinting.
func (f AddressFields) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		f.Prenom, f.Nom, f.Adresse, f.ComplementAdresse,
		f.CodePostal, f.Ville, f.Pays, f.Telephone, f.Instructions,
	}, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

type ShippingAddress struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AddressFields
	Empreinte string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (ShippingAddress) TableName() string { return "livraison" }

type BillingAddress struct {
	ID uint `gorm:"primaryKey" json:"id"`
	AddressFields
	Empreinte string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (BillingAddress) TableName() string { return "facturation" }
