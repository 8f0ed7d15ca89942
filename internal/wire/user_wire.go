package wire

import (
	"cinema-core/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireUser mounts one sub-tree per variant under /users/{role}. Activation
// is variant-agnostic and lives under /accounts.
func wireUser(r chi.Router, userHandler *adaptor.UserHandler) {
	r.Route("/users/{role}", func(r chi.Router) {
		r.Get("/", userHandler.GetUsers)
		r.Post("/", userHandler.CreateUser)
		r.Get("/login/{login}", userHandler.GetUserByLogin)

		r.Get("/{id}", userHandler.GetUserByID)
		r.Put("/{id}", userHandler.UpdateUser)
		r.Delete("/{id}", userHandler.DeleteUser)
		r.Get("/{id}/tickets", userHandler.GetUserTickets)
	})

	r.Post("/accounts/{id}/activate", userHandler.ActivateUser)
	r.Post("/accounts/{id}/deactivate", userHandler.DeactivateUser)
}
