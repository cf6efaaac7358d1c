package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes groups the handlers mounted by the server.
type Routes struct {
	Health   *HealthHandler
	Users    *UserHandler
	Messages *MessageHandler
	Groups   *GroupHandler
	Alerts   *AlertHandler
}

// Register mounts public routes on r and everything else under /api behind auth.
func (rt Routes) Register(r chi.Router, auth func(http.Handler) http.Handler) {
	rt.Health.RegisterHealth(r)
	rt.Users.RegisterAdminRoutes(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)
		rt.Users.RegisterRoutes(r)
		rt.Messages.RegisterRoutes(r)
		rt.Groups.RegisterRoutes(r)
		rt.Alerts.RegisterRoutes(r)
	})
}
