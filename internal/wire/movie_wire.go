package wire

import (
	"cinema-core/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireMovie(r chi.Router, movieHandler *adaptor.MovieHandler) {
	r.Route("/movies", func(r chi.Router) {
		r.Get("/", movieHandler.GetMovies)
		r.Post("/", movieHandler.CreateMovie)

		r.Get("/{id}", movieHandler.GetMovieByID)
		r.Put("/{id}", movieHandler.UpdateMovie)    // If-Match required
		r.Delete("/{id}", movieHandler.DeleteMovie) // 409 while tickets exist
		r.Get("/{id}/tickets", movieHandler.GetMovieTickets)
	})
}
