package repositories

import (
	"context"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/pkg/orm"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks up a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := orm.On(r.db).WithContext(ctx).Where("email = ?", email).First(&user)
	return user, translate(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := orm.On(r.db).WithContext(ctx).Where("id = ?", id).First(&user)
	return user, translate(err)
}

func (r *UserRepository) FindByConfirmationToken(ctx context.Context, token string) (models.User, error) {
	var user models.User
	err := orm.On(r.db).WithContext(ctx).Where("jeton_confirmation = ?", token).First(&user)
	return user, translate(err)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Confirm marks the account confirmed and clears its token.
func (r *UserRepository) Confirm(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"confirme": true, "jeton_confirmation": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a user with id exists.
func (r *UserRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
