package models

import "time"

// User is a storefront account. Accounts start unconfirmed and carry a
// one-time confirmation token until the emailed link is followed.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Nom               string    `gorm:"size:100;not null" json:"nom"`
	Prenom            string    `gorm:"size:100;not null" json:"prenom"`
	Email             string    `gorm:"size:191;not null;uniqueIndex" json:"email"`
	MotDePasse        string    `gorm:"column:mdp;size:255;not null" json:"-"`
	Role              string    `gorm:"size:20;not null;default:client" json:"role"`
	Confirme          bool      `gorm:"not null;default:false" json:"confirme"`
	JetonConfirmation *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (User) TableName() string { return "utilisateur" }
