package models

import "github.com/shopspring/decimal"

// ColissimoTariff is one weight bracket: parcels up to PoidsMax grams cost Prix.
type ColissimoTariff struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	PoidsMax int             `gorm:"column:poids_max;not null;uniqueIndex" json:"poids_max"`
	Prix     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"prix"`
}

func (ColissimoTariff) TableName() string { return "colissimo_tarifs" }
