package entity

// Document field names, shared with filters built by the repositories.
const (
	FieldID            = "id"
	FieldMovieTitle    = "movie_title"
	FieldMovieID       = "movie_id"
	FieldUserID        = "user_id"
	FieldUserLogin     = "user_login"
	FieldUserRole      = "user_role"
	FieldScreeningRoom = "scr_room_number"
)

type Movie struct {
	Base
	Title         string  `json:"movie_title" validate:"required,min=1,max=150"`
	BasePrice     float64 `json:"movie_base_price" validate:"min=0,max=100"`
	ScreeningRoom int     `json:"scr_room_number" validate:"min=1,max=30"`
	SeatCapacity  int     `json:"number_of_available_seats" validate:"min=0,max=120"`
}

func (m *Movie) Kind() string {
	return "movie"
}

func (m *Movie) Projection() map[string]any {
	return map[string]any{
		FieldID:                     m.ID.String(),
		FieldMovieTitle:             m.Title,
		"movie_base_price_cents":    Cents(m.BasePrice),
		FieldScreeningRoom:          int64(m.ScreeningRoom),
		"number_of_available_seats": int64(m.SeatCapacity),
	}
}
