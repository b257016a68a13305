package controllers_test

import (
	"net/http"
	"testing"

	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/event"
	"github.com/rituelsdebene/boutique/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db)

	var token string
	event.Listen(services.EventUserRegistered, func(p interface{}) {
		token = p.(services.UserRegistered).Token
	})

	register := map[string]string{"nom": "Diallo", "prenom": "Awa", "email": "awa@example.com", "mdp": "secret123"}
	login := map[string]string{"email": "awa@example.com", "mdp": "secret123"}

	testkit.Run(t, h,
		testkit.Scenario{
			Name: "register", Method: http.MethodPost, URL: "/register", Body: register,
			ExpectedCode: http.StatusCreated,
		},
		testkit.Scenario{
			Name: "register twice", Method: http.MethodPost, URL: "/register", Body: register,
			ExpectedCode: http.StatusConflict, ExpectedMessage: "Email déjà utilisé",
		},
		testkit.Scenario{
			Name: "register invalid", Method: http.MethodPost, URL: "/register",
			Body:         map[string]string{"nom": "Diallo", "email": "nope", "mdp": "short"},
			ExpectedCode: http.StatusUnprocessableEntity,
			Check: func(t *testing.T, env testkit.Envelope) {
				assert.Contains(t, env.Errors, "prenom")
				assert.Contains(t, env.Errors, "email")
				assert.Contains(t, env.Errors, "mdp")
			},
		},
		testkit.Scenario{
			Name: "login unconfirmed", Method: http.MethodPost, URL: "/login", Body: login,
			ExpectedCode: http.StatusForbidden, ExpectedMessage: "Compte non confirmé",
		},
		testkit.Scenario{
			Name: "confirm unknown", Method: http.MethodGet, URL: "/confirm/deadbeef",
			ExpectedCode: http.StatusNotFound,
		},
	)

	require.NotEmpty(t, token)
	testkit.Run(t, h,
		testkit.Scenario{
			Name: "confirm", Method: http.MethodGet, URL: "/confirm/" + token,
			ExpectedCode: http.StatusOK, ExpectedMessage: "Compte confirmé",
		},
		testkit.Scenario{
			Name: "login bad password", Method: http.MethodPost, URL: "/login",
			Body:         map[string]string{"email": "awa@example.com", "mdp": "wrong-password"},
			ExpectedCode: http.StatusUnauthorized, ExpectedMessage: "Identifiants invalides",
		},
		testkit.Scenario{
			Name: "login", Method: http.MethodPost, URL: "/login", Body: login,
			ExpectedCode: http.StatusOK,
			Check: func(t *testing.T, env testkit.Envelope) {
				var res services.LoginResult
				testkit.Data(t, env, &res)
				assert.NotEmpty(t, res.Token)
				assert.Equal(t, "client", res.Role)
			},
		},
		testkit.Scenario{
			Name: "malformed body", Method: http.MethodPost, URL: "/login", Body: "{",
			ExpectedCode: http.StatusBadRequest,
		},
	)
}

func TestGuards(t *testing.T) {
	db := testkit.NewDB(t)
	h := newAPI(t, db)
	client := testkit.Token(t, testkit.User(t, db, "awa@example.com"))
	admin := testkit.Token(t, testkit.Admin(t, db, "admin@example.com"))

	testkit.Run(t, h,
		testkit.Scenario{Name: "cart without token", Method: http.MethodGet, URL: "/cart",
			ExpectedCode: http.StatusUnauthorized, ExpectedMessage: "Token manquant"},
		testkit.Scenario{Name: "cart with bad token", Method: http.MethodGet, URL: "/cart", Token: "garbage",
			ExpectedCode: http.StatusUnauthorized, ExpectedMessage: "Token invalide"},
		testkit.Scenario{Name: "cart as admin", Method: http.MethodGet, URL: "/cart", Token: admin,
			ExpectedCode: http.StatusForbidden},
		testkit.Scenario{Name: "cart as client", Method: http.MethodGet, URL: "/cart", Token: client,
			ExpectedCode: http.StatusOK},
		testkit.Scenario{Name: "orders as client", Method: http.MethodGet, URL: "/list-commandes", Token: client,
			ExpectedCode: http.StatusForbidden, ExpectedMessage: "Accès refusé"},
		testkit.Scenario{Name: "orders as admin", Method: http.MethodGet, URL: "/list-commandes", Token: admin,
			ExpectedCode: http.StatusOK},
		testkit.Scenario{Name: "unknown route", Method: http.MethodGet, URL: "/nope",
			ExpectedCode: http.StatusNotFound, ExpectedMessage: "Route introuvable"},
		testkit.Scenario{Name: "wrong method", Method: http.MethodDelete, URL: "/login",
			ExpectedCode: http.StatusMethodNotAllowed},
	)
}
