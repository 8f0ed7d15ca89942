package wire

import (
	"cinema-core/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireTicket(r chi.Router, ticketHandler *adaptor.TicketHandler) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", ticketHandler.GetTickets)
		r.Post("/", ticketHandler.CreateTicket)

		r.Get("/{id}", ticketHandler.GetTicketByID)
		r.Put("/{id}", ticketHandler.UpdateTicket) // screening time only
		r.Delete("/{id}", ticketHandler.DeleteTicket)
	})
}
