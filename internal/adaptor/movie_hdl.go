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

type MovieHandler struct {
	service usecase.MovieService
	log     *zap.Logger
}

func NewMovieHandler(service usecase.MovieService, log *zap.Logger) *MovieHandler {
	return &MovieHandler{
		service: service,
		log:     log.With(zap.String("handler", "movie")),
	}
}

// GetMovies handles GET /api/movies. ?title filters by a case-insensitive
// fragment; ?page switches to a paginated listing ordered by title.
func (h *MovieHandler) GetMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if title := query.Get("title"); title != "" {
		movies, err := h.service.FindAllMatching(r.Context(), title)
		if err != nil {
			writeServiceError(w, h.log, err, "get movies by title")
			return
		}
		utils.ResponseSuccess(w, "Movies retrieved successfully", response.MoviesToResponse(movies))
		return
	}

	if query.Has("page") || query.Has("per_page") {
		req := request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 10),
		}
		movies, total, err := h.service.FindPage(r.Context(), req.Page, req.Limit())
		if err != nil {
			writeServiceError(w, h.log, err, "get movie page")
			return
		}
		page := response.NewPaginatedResponse(response.MoviesToResponse(movies), req.Page, req.Limit(), total)
		utils.ResponseSuccess(w, "Movies retrieved successfully", page)
		return
	}

	movies, err := h.service.FindAll(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "get movies")
		return
	}
	utils.ResponseSuccess(w, "Movies retrieved successfully", response.MoviesToResponse(movies))
}

// GetMovieByID handles GET /api/movies/{id} and sets the ETag.
func (h *MovieHandler) GetMovieByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Movie")
	if !ok {
		return
	}

	movie, token, err := h.service.FindByIDWithToken(r.Context(), id, utils.GetCallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "get movie")
		return
	}

	setETag(w, token)
	utils.ResponseSuccess(w, "Movie retrieved successfully", response.MovieToResponse(movie))
}

// CreateMovie handles POST /api/movies
func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	var req request.MovieRequest
	if !decodeBody(w, r, &req) {
		return
	}

	movie, err := h.service.Create(r.Context(), req.Title, req.BasePrice, req.ScreeningRoom, req.SeatCapacity)
	if err != nil {
		writeServiceError(w, h.log, err, "create movie")
		return
	}

	utils.ResponseCreated(w, "Movie created successfully", response.MovieToResponse(movie))
}

// UpdateMovie handles PUT /api/movies/{id}; requires If-Match.
func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Movie")
	if !ok {
		return
	}
	token, ok := requireIfMatch(w, r)
	if !ok {
		return
	}

	var req request.MovieRequest
	if !decodeBody(w, r, &req) {
		return
	}

	movie := &entity.Movie{
		Base:          entity.Base{ID: id},
		Title:         req.Title,
		BasePrice:     req.BasePrice,
		ScreeningRoom: req.ScreeningRoom,
		SeatCapacity:  req.SeatCapacity,
	}
	updated, err := h.service.Update(r.Context(), movie, token, utils.GetCallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "update movie")
		return
	}

	utils.ResponseSuccess(w, "Movie updated successfully", response.MovieToResponse(updated))
}

// DeleteMovie handles DELETE /api/movies/{id}
func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Movie")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "delete movie")
		return
	}

	utils.ResponseSuccess(w, "Movie deleted successfully", nil)
}

// GetMovieTickets handles GET /api/movies/{id}/tickets
func (h *MovieHandler) GetMovieTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Movie")
	if !ok {
		return
	}

	tickets, err := h.service.Tickets(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "get movie tickets")
		return
	}

	utils.ResponseSuccess(w, "Tickets retrieved successfully", response.TicketDetailsListToResponse(tickets))
}
