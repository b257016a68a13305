package migrations

import (
	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20250301000100_create_categorie_produit_table", &CreateCategoriesTable{})
	migration.Register("20250301000200_create_produit_table", &CreateProductsTable{})
	migration.Register("20250301000300_create_unite_vente_table", &CreateSaleUnitsTable{})
	migration.Register("20250301000400_create_colissimo_tarifs_table", &CreateTariffsTable{})
}

type CreateCategoriesTable struct{}

func (m *CreateCategoriesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Category{})
}

func (m *CreateCategoriesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Category{})
}

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Product{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Product{})
}

// CreateSaleUnitsTable also adds the stock check so a decrement can never
// leave a negative quantity behind.
type CreateSaleUnitsTable struct{}

func (m *CreateSaleUnitsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.SaleUnit{})
}

func (m *CreateSaleUnitsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.SaleUnit{})
}

type CreateTariffsTable struct{}

func (m *CreateTariffsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.ColissimoTariff{})
}

func (m *CreateTariffsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.ColissimoTariff{})
}
