package response

import (
	"cinema-core/internal/data/entity"
)

type MovieResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	BasePrice     float64 `json:"base_price"`
	ScreeningRoom int     `json:"screening_room"`
	SeatCapacity  int     `json:"seat_capacity"`
}

func MovieToResponse(movie *entity.Movie) MovieResponse {
	return MovieResponse{
		ID:            movie.ID.String(),
		Title:         movie.Title,
		BasePrice:     movie.BasePrice,
		ScreeningRoom: movie.ScreeningRoom,
		SeatCapacity:  movie.SeatCapacity,
	}
}

func MoviesToResponse(movies []*entity.Movie) []MovieResponse {
	out := make([]MovieResponse, 0, len(movies))
	for _, m := range movies {
		out = append(out, MovieToResponse(m))
	}
	return out
}
