package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rituelsdebene/boutique/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoParam(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(r, name)))
	}
}

func TestGroupsAndNames(t *testing.T) {
	r := router.New()
	api := r.Group("/api/")
	api.Get("/produit/{id}", "catalog.product", echoParam("id"))

	var order []string
	tag := func(name string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, req)
			})
		}
	}
	admin := api.Group("admin", tag("group"))
	admin.Delete("/commande/{id}", "admin.order.delete", echoParam("id"), tag("route"))

	path, ok := r.Path("catalog.product")
	require.True(t, ok)
	assert.Equal(t, "/api/produit/{id}", path)

	url, err := r.URL("admin.order.delete", map[string]string{"id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "/api/admin/commande/7", url)

	_, err = r.URL("admin.order.delete", nil)
	assert.Error(t, err)
	_, err = r.URL("nope", nil)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/commande/7", nil))
	assert.Equal(t, "7", rec.Body.String())
	assert.Equal(t, []string{"group", "route"}, order)
}

func TestRoutesSorted(t *testing.T) {
	r := router.New()
	noop := func(http.ResponseWriter, *http.Request) {}
	g := r.Group("")
	g.Put("/cart/payee", "cart.finalize", noop)
	g.Get("/cart", "cart.show", noop)
	g.Post("/cart/ajouter", "cart.add", noop)
	r.Post("/cart", "", noop)

	routes := r.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, "/cart", routes[0].Path)
	assert.Equal(t, "/cart", routes[1].Path)
	assert.Equal(t, http.MethodGet, routes[0].Method)
	assert.Equal(t, http.MethodPost, routes[1].Method)
	assert.Equal(t, "/cart/ajouter", routes[2].Path)
	assert.Equal(t, "/cart/payee", routes[3].Path)
	assert.Equal(t, http.MethodPut, routes[3].Method)
}
