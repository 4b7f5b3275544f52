package api

import (
	"net/http"

	"github.com/erazemk/komponente/internal/metrics"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/service"
)

// Services are the collaborators the router dispatches to.
type Services struct {
	Guard     *service.Guard
	Inventory *service.Inventory
	Ledger    *service.Ledger
	Taxonomy  *service.Taxonomy
	Users     *service.Users
	Reports   *service.Reports
	Contact   *service.Contact

	// Uploads serves locally stored images. Nil when assets live elsewhere.
	Uploads http.Handler
	// LoginLimit wraps the login endpoint. Nil disables rate limiting.
	LoginLimit func(http.Handler) http.Handler
}

// NewRouter creates the router with all endpoints registered.
func NewRouter(svc Services) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Guard: svc.Guard, Users: svc.Users}
	usersHandler := &UsersHandler{Users: svc.Users}
	componentsHandler := &ComponentsHandler{Inventory: svc.Inventory}
	categoriesHandler := &TaxonomyHandler{Taxonomy: svc.Taxonomy, Kind: model.TaxonomyCategory}
	locationsHandler := &TaxonomyHandler{Taxonomy: svc.Taxonomy, Kind: model.TaxonomyLocation}
	movementsHandler := &MovementsHandler{Ledger: svc.Ledger}
	contactHandler := &ContactHandler{Contact: svc.Contact}
	reportsHandler := &ReportsHandler{Reports: svc.Reports}

	authMW := AuthMiddleware(svc.Guard)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public.
	var login http.Handler = http.HandlerFunc(authHandler.Login)
	if svc.LoginLimit != nil {
		login = svc.LoginLimit(login)
	}
	mux.Handle("POST /api/auth/login", login)
	mux.HandleFunc("GET /login", loginPage)
	mux.Handle("GET /metrics", metrics.Handler())

	// Session.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	// Components: read (all roles), write (admin).
	mux.Handle("GET /api/components", authMW(http.HandlerFunc(componentsHandler.List)))
	mux.Handle("GET /api/components/{id}", authMW(http.HandlerFunc(componentsHandler.Get)))
	mux.Handle("POST /api/components", authMW(requireAdmin(http.HandlerFunc(componentsHandler.Create))))
	mux.Handle("PUT /api/components/{id}", authMW(requireAdmin(http.HandlerFunc(componentsHandler.Update))))
	mux.Handle("DELETE /api/components/{id}", authMW(requireAdmin(http.HandlerFunc(componentsHandler.Delete))))

	// Categories and locations: read (all roles), write (admin).
	for prefix, h := range map[string]*TaxonomyHandler{
		"/api/categories": categoriesHandler,
		"/api/locations":  locationsHandler,
	} {
		mux.Handle("GET "+prefix, authMW(http.HandlerFunc(h.List)))
		mux.Handle("POST "+prefix, authMW(requireAdmin(http.HandlerFunc(h.Create))))
		mux.Handle("PUT "+prefix+"/{id}", authMW(requireAdmin(http.HandlerFunc(h.Rename))))
		mux.Handle("DELETE "+prefix+"/{id}", authMW(requireAdmin(http.HandlerFunc(h.Delete))))
	}

	// Movements: read (all roles), write (admin).
	mux.Handle("GET /api/movements", authMW(http.HandlerFunc(movementsHandler.List)))
	mux.Handle("POST /api/movements", authMW(requireAdmin(http.HandlerFunc(movementsHandler.Create))))
	mux.Handle("POST /api/movements/{id}/return", authMW(requireAdmin(http.HandlerFunc(movementsHandler.Return))))

	// People and users.
	mux.Handle("GET /api/people", authMW(http.HandlerFunc(usersHandler.People)))
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Contact and exports.
	mux.Handle("POST /api/contact", authMW(http.HandlerFunc(contactHandler.Send)))
	mux.Handle("GET /api/reports/{file}", authMW(requireAdmin(http.HandlerFunc(reportsHandler.Export))))

	if svc.Uploads != nil {
		mux.Handle("GET /upload/", authMW(svc.Uploads))
	}

	return LoggingMiddleware(MetricsMiddleware(mux))
}

// loginPage is where unauthenticated browsers land. The UI is served
// separately; this only tells the visitor how to sign in.
func loginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Inicie sesión con POST /api/auth/login\n"))
}
