package seeders

import (
	"errors"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/auth"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func init() {
	Register("categories", SeedCategories)
	Register("colissimo_tarifs", SeedColissimoTariffs)
	Register("admin", SeedAdmin)
}

// Categories served by the legacy listing routes.
var Categories = []string{"Plantes brutes", "Poudres"}

// ColissimoBrackets maps a weight limit in grams to its price.
var ColissimoBrackets = []struct {
	PoidsMax int
	Prix     string
}{
	{250, "4.99"},
	{500, "6.99"},
	{750, "7.99"},
	{1000, "8.99"},
	{2000, "10.49"},
	{5000, "15.99"},
}

func SeedCategories(db *gorm.DB) error {
	for _, name := range Categories {
		err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Category{Nom: name}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func SeedColissimoTariffs(db *gorm.DB) error {
	for _, b := range ColissimoBrackets {
		row := models.ColissimoTariff{PoidsMax: b.PoidsMax, Prix: decimal.RequireFromString(b.Prix)}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poids_max"}},
			DoUpdates: clause.AssignmentColumns([]string{"prix"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	repositories.NewTariffRepository(db).Forget()
	return nil
}

// SeedAdmin creates the confirmed back-office account from ADMIN_EMAIL and
// ADMIN_PASSWORD. An existing account is left untouched.
func SeedAdmin(db *gorm.DB) error {
	email := config.Get("ADMIN_EMAIL", "admin@rituelsdebene.fr")
	password := config.Get("ADMIN_PASSWORD", "")
	if password == "" {
		return errors.New("ADMIN_PASSWORD is not set")
	}

	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Nom:        "Admin",
		Prenom:     "Boutique",
		Email:      email,
		MotDePasse: hash,
		Role:       auth.RoleAdmin,
		Confirme:   true,
	}).Error
}
