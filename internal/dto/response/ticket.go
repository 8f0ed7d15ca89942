package response

import (
	"time"

	"cinema-core/internal/data/entity"
)

type TicketResponse struct {
	ID            string         `json:"id"`
	ScreeningTime time.Time      `json:"screening_time"`
	Type          string         `json:"ticket_type"`
	FinalPrice    float64        `json:"final_price"`
	Movie         *MovieResponse `json:"movie,omitempty"`
	User          *UserResponse  `json:"user,omitempty"`
	MovieID       string         `json:"movie_id"`
	UserID        string         `json:"user_id"`
}

func TicketToResponse(ticket *entity.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID.String(),
		ScreeningTime: ticket.ScreeningTime,
		Type:          string(ticket.Type),
		FinalPrice:    ticket.FinalPrice,
		MovieID:       ticket.MovieID.String(),
		UserID:        ticket.UserID.String(),
	}
}

// TicketDetailsToResponse embeds the resolved movie and user.
func TicketDetailsToResponse(d *entity.TicketDetails) TicketResponse {
	resp := TicketToResponse(d.Ticket)
	if d.Movie != nil {
		movie := MovieToResponse(d.Movie)
		resp.Movie = &movie
	}
	if d.User != nil {
		user := UserToResponse(d.User)
		resp.User = &user
	}
	return resp
}

func TicketDetailsListToResponse(details []*entity.TicketDetails) []TicketResponse {
	out := make([]TicketResponse, 0, len(details))
	for _, d := range details {
		out = append(out, TicketDetailsToResponse(d))
	}
	return out
}
