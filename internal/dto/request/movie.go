package request

type MovieRequest struct {
	Title         string  `json:"title" validate:"required,min=1,max=150"`
	BasePrice     float64 `json:"base_price" validate:"min=0,max=100"`
	ScreeningRoom int     `json:"screening_room" validate:"min=1,max=30"`
	SeatCapacity  int     `json:"seat_capacity" validate:"min=0,max=120"`
}
