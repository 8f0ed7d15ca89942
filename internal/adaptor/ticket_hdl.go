package adaptor

import (
	"net/http"

	"cinema-core/internal/data/entity"
	"cinema-core/internal/dto/request"
	"cinema-core/internal/dto/response"
	"cinema-core/internal/usecase"
	"cinema-core/pkg/utils"

	"go.uber.org/zap"
)

type TicketHandler struct {
	service usecase.TicketService
	log     *zap.Logger
}

func NewTicketHandler(service usecase.TicketService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		log:     log.With(zap.String("handler", "ticket")),
	}
}

// GetTickets handles GET /api/tickets
func (h *TicketHandler) GetTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.FindAll(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "get tickets")
		return
	}
	utils.ResponseSuccess(w, "Tickets retrieved successfully", response.TicketDetailsListToResponse(tickets))
}

// GetTicketByID handles GET /api/tickets/{id} and sets the ETag.
func (h *TicketHandler) GetTicketByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Ticket")
	if !ok {
		return
	}

	details, token, err := h.service.FindByIDWithToken(r.Context(), id, utils.GetCallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "get ticket")
		return
	}

	setETag(w, token)
	utils.ResponseSuccess(w, "Ticket retrieved successfully", response.TicketDetailsToResponse(details))
}

// CreateTicket handles POST /api/tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req request.TicketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	details, err := h.service.Create(r.Context(), req.ScreeningTime, entity.TicketType(req.Type), req.UserID, req.MovieID)
	if err != nil {
		writeServiceError(w, h.log, err, "create ticket")
		return
	}

	utils.ResponseCreated(w, "Ticket created successfully", response.TicketDetailsToResponse(details))
}

// UpdateTicket handles PUT /api/tickets/{id}; requires If-Match. Only the
// screening time can change.
func (h *TicketHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Ticket")
	if !ok {
		return
	}
	token, ok := requireIfMatch(w, r)
	if !ok {
		return
	}

	var req request.TicketUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ticket := &entity.Ticket{
		Base:          entity.Base{ID: id},
		ScreeningTime: req.ScreeningTime,
		Type:          entity.TicketType(req.Type),
		FinalPrice:    req.FinalPrice,
		UserID:        req.UserID,
		MovieID:       req.MovieID,
	}
	updated, err := h.service.Update(r.Context(), ticket, token, utils.GetCallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "update ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket updated successfully", response.TicketToResponse(updated))
}

// DeleteTicket handles DELETE /api/tickets/{id}
func (h *TicketHandler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Ticket")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "delete ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket deleted successfully", nil)
}
