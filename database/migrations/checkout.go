package migrations

import (
	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20250301000500_create_address_tables", &CreateAddressTables{})
	migration.Register("20250301000600_create_cart_table", &CreateCartTable{})
	migration.Register("20250301000700_create_commande_tables", &CreateOrderTables{})
}

// CreateAddressTables creates livraison and facturation with the unique
// fingerprint index used for deduplication.
type CreateAddressTables struct{}

func (m *CreateAddressTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.ShippingAddress{}, &models.BillingAddress{})
}

func (m *CreateAddressTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.BillingAddress{}, &models.ShippingAddress{})
}

// CreateCartTable creates cart with its (id_utilisateur, id_produit)
// unique index.
type CreateCartTable struct{}

func (m *CreateCartTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.CartLine{})
}

func (m *CreateCartTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.CartLine{})
}

type CreateOrderTables struct{}

func (m *CreateOrderTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderLine{})
}

func (m *CreateOrderTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.OrderLine{}, &models.Order{})
}
