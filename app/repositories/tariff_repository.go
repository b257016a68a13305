package repositories

import (
	"context"
	"time"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/cache"
	"github.com/rituelsdebene/boutique/pkg/orm"
	"gorm.io/gorm"
)

const (
	tariffCacheKey = "colissimo:tarifs"
	tariffCacheTTL = 10 * time.Minute
)

type TariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// All returns every Colissimo bracket sorted by ascending weight limit.
func (r *TariffRepository) All(ctx context.Context) ([]models.ColissimoTariff, error) {
	var out []models.ColissimoTariff
	err := orm.On(r.db).WithContext(ctx).Order("poids_max ASC").Cache(tariffCacheKey, tariffCacheTTL, &out)
	return out, err
}

// Forget drops the cached bracket list after the table changed.
func (r *TariffRepository) Forget() {
	cache.Del(tariffCacheKey)
}
