package services_test

import (
	"context"
	"testing"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/auth"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterConfirmLogin(t *testing.T) {
	db := testkit.NewDB(t)
	t.Cleanup(event.Flush)
	svc := services.NewAuthService(db)
	ctx := context.Background()

	var registered []services.UserRegistered
	event.Listen(services.EventUserRegistered, func(p interface{}) {
		registered = append(registered, p.(services.UserRegistered))
	})

	user, err := svc.Register(ctx, services.RegisterInput{
		Nom: "Diallo", Prenom: "Awa", Email: "  Awa@Example.com ", MotDePasse: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "awa@example.com", user.Email)
	assert.Equal(t, auth.RoleClient, user.Role)
	assert.False(t, user.Confirme)
	assert.NotEqual(t, "secret123", user.MotDePasse)

	require.Len(t, registered, 1)
	token := registered[0].Token
	assert.Len(t, token, 64)

	_, err = svc.Login(ctx, services.LoginInput{Email: "awa@example.com", MotDePasse: "secret123"})
	assert.ErrorIs(t, err, services.ErrAccountNotConfirmed)

	require.NoError(t, svc.Confirm(ctx, token))
	assert.ErrorIs(t, svc.Confirm(ctx, token), services.ErrNotFound, "token is single use")

	res, err := svc.Login(ctx, services.LoginInput{Email: "AWA@example.com", MotDePasse: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleClient, res.Role)

	claims, err := auth.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)
	assert.Equal(t, "awa@example.com", claims.Email)
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	db := testkit.NewDB(t)
	testkit.User(t, db, "awa@example.com")

	_, err := services.NewAuthService(db).Register(context.Background(), services.RegisterInput{
		Nom: "Diallo", Prenom: "Awa", Email: "awa@example.com", MotDePasse: "secret123",
	})
	assert.ErrorIs(t, err, services.ErrConflict)
	assert.Equal(t, "Email déjà utilisé", services.MessageOf(err))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAuth_LoginBadCredentials(t *testing.T) {
	db := testkit.NewDB(t)
	testkit.User(t, db, "awa@example.com")
	svc := services.NewAuthService(db)

	_, err := svc.Login(context.Background(), services.LoginInput{Email: "awa@example.com", MotDePasse: "nope"})
	assert.ErrorIs(t, err, services.ErrBadCredentials)

	_, err = svc.Login(context.Background(), services.LoginInput{Email: "ghost@example.com", MotDePasse: "secret123"})
	assert.ErrorIs(t, err, services.ErrBadCredentials)
}

func TestAuth_ConfirmUnknownToken(t *testing.T) {
	db := testkit.NewDB(t)
	svc := services.NewAuthService(db)

	assert.ErrorIs(t, svc.Confirm(context.Background(), ""), services.ErrNotFound)
	assert.ErrorIs(t, svc.Confirm(context.Background(), "deadbeef"), services.ErrNotFound)
}
