// Package rbac guards routes by bearer token and role.
package rbac

import (
	"errors"
	"net/http"

	"github.com/rituelsdebene/boutique/pkg/auth"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/middleware"
	"github.com/rituelsdebene/boutique/pkg/response"
)

// Decision is the outcome of Authorize.
type Decision int

const (
	Authorized Decision = iota
	Unauthorized
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "forbidden"
	}
}

// Result carries the decision, the claims when the token was valid, and
// the client-facing reason.
type Result struct {
	Decision Decision
	Claims   *auth.Claims
	Reason   string
}

// Authorize checks r's bearer token and, when roles is non-empty, that the
// token's role is one of them. An empty roles list accepts any valid token.
func Authorize(r *http.Request, roles ...string) Result {
	claims, err := middleware.Authenticate(r)
	if err != nil {
		if errors.Is(err, middleware.ErrNoToken) {
			return Result{Decision: Unauthorized, Reason: "Token manquant"}
		}
		return Result{Decision: Unauthorized, Reason: "Token invalide"}
	}

	if len(roles) == 0 {
		return Result{Decision: Authorized, Claims: claims}
	}
	for _, role := range roles {
		if claims.Role == role {
			return Result{Decision: Authorized, Claims: claims}
		}
	}
	return Result{Decision: Forbidden, Claims: claims, Reason: "Accès refusé"}
}

// Require is the route middleware form of Authorize. Authorized requests
// continue with the claims in context.
func Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := Authorize(r, roles...)
			switch res.Decision {
			case Authorized:
				next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), res.Claims)))
			case Unauthorized:
				logger.WithCtx(r.Context()).Debug("request rejected", "kind", "unauthorized", "reason", res.Reason)
				response.Unauthorized(w, res.Reason)
			default:
				logger.WithCtx(r.Context()).Info("request rejected",
					"kind", "forbidden", "user_id", res.Claims.ID, "role", res.Claims.Role, "required", roles)
				response.Forbidden(w)
			}
		})
	}
}

// Client and Admin are the two guards used by the routes.
func Client() func(http.Handler) http.Handler { return Require(auth.RoleClient) }

func Admin() func(http.Handler) http.Handler { return Require(auth.RoleAdmin) }

// Authenticated accepts any valid token regardless of role.
func Authenticated() func(http.Handler) http.Handler { return Require() }
