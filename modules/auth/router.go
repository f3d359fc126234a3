package auth

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/uniserve/uniserve/svc/auth"
)

// Router mounts the authentication HTTP surface.
//
//	POST /register
//	POST /login
//	POST /refresh
//	POST /logout
//	GET  /federated/{provider}
//	GET  /federated/{provider}/callback
//	POST /verify-email/request
//	POST /verify-email/confirm
//	POST /password-reset/request
//	POST /password-reset/confirm
//	GET  /me              (bearer protected)
func Router(svc *authsvc.Service, log *slog.Logger) chi.Router {
	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)

	r.Get("/federated/{provider}", h.federatedStart)
	r.Get("/federated/{provider}/callback", h.federatedCallback)

	r.Post("/verify-email/request", h.requestVerification)
	r.Post("/verify-email/confirm", h.confirmVerification)
	r.Post("/password-reset/request", h.requestReset)
	r.Post("/password-reset/confirm", h.confirmReset)

	r.Group(func(protected chi.Router) {
		protected.Use(RequireBearer(svc))
		protected.Get("/me", h.me)
	})

	return r
}
