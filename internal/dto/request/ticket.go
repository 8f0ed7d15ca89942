package request

import (
	"time"

	"github.com/google/uuid"
)

type TicketRequest struct {
	ScreeningTime time.Time `json:"screening_time" validate:"required"`
	Type          string    `json:"ticket_type" validate:"required,oneof=normal reduced"`
	UserID        uuid.UUID `json:"user_id" validate:"required"`
	MovieID       uuid.UUID `json:"movie_id" validate:"required"`
}

// TicketUpdateRequest carries the whole ticket. Only the screening time
// may differ from the stored one; type and price may be omitted.
type TicketUpdateRequest struct {
	ScreeningTime time.Time `json:"screening_time" validate:"required"`
	Type          string    `json:"ticket_type" validate:"omitempty,oneof=normal reduced"`
	FinalPrice    float64   `json:"final_price" validate:"min=0"`
	UserID        uuid.UUID `json:"user_id" validate:"required"`
	MovieID       uuid.UUID `json:"movie_id" validate:"required"`
}
