package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TicketType string

const (
	TicketTypeNormal  TicketType = "normal"
	TicketTypeReduced TicketType = "reduced"
)

// Multiplier returns the factor applied to a movie's base price.
func (t TicketType) Multiplier() (float64, error) {
	switch t {
	case TicketTypeNormal:
		return 1.0, nil
	case TicketTypeReduced:
		return 0.75, nil
	default:
		return 0, fmt.Errorf("unknown ticket type %q", string(t))
	}
}

// Ticket is the stored form: it references its movie and user by ID only.
// FinalPrice is computed at creation and never recomputed.
type Ticket struct {
	Base
	ScreeningTime time.Time  `json:"movie_time" validate:"required"`
	Type          TicketType `json:"ticket_type" validate:"required,oneof=normal reduced"`
	FinalPrice    float64    `json:"ticket_final_price" validate:"min=0"`
	UserID        uuid.UUID  `json:"user_id" validate:"required"`
	MovieID       uuid.UUID  `json:"movie_id" validate:"required"`
}

// NewTicket prices a ticket for movie m.
func NewTicket(id uuid.UUID, screeningTime time.Time, ticketType TicketType, user User, m *Movie) (*Ticket, error) {
	multiplier, err := ticketType.Multiplier()
	if err != nil {
		return nil, err
	}
	return &Ticket{
		Base:          Base{ID: id},
		ScreeningTime: screeningTime.UTC(),
		Type:          ticketType,
		FinalPrice:    RoundPrice(m.BasePrice * multiplier),
		UserID:        user.Key(),
		MovieID:       m.ID,
	}, nil
}

func (t *Ticket) Kind() string {
	return "ticket"
}

func (t *Ticket) Projection() map[string]any {
	return map[string]any{
		FieldID:                    t.ID.String(),
		"movie_time":               t.ScreeningTime.UTC().Format(time.RFC3339Nano),
		"ticket_type":              string(t.Type),
		"ticket_final_price_cents": Cents(t.FinalPrice),
		FieldUserID:                t.UserID.String(),
		FieldMovieID:               t.MovieID.String(),
	}
}

// TicketDetails is a ticket with both references resolved.
type TicketDetails struct {
	Ticket *Ticket
	Movie  *Movie
	User   User
}
