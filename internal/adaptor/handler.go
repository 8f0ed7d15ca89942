package adaptor

import (
	"encoding/json"
	"net/http"
	"strings"

	"cinema-core/internal/usecase"
	"cinema-core/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Movie  *MovieHandler
	Ticket *TicketHandler
	User   *UserHandler
}

func NewHandler(service *usecase.Service, passwordCost int, log *zap.Logger) *Handler {
	return &Handler{
		Movie:  NewMovieHandler(service.Movie, log),
		Ticket: NewTicketHandler(service.Ticket, log),
		User:   NewUserHandler(service.User, passwordCost, log),
	}
}

// pathID parses the {id} URL parameter, answering 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, what+" ID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes and validates a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

// setETag publishes a version token. Tokens are base64url segments joined
// by dots, so they never need escaping inside the quotes.
func setETag(w http.ResponseWriter, token string) {
	w.Header().Set("ETag", `"`+token+`"`)
}

// ifMatch returns the version token presented in If-Match.
func ifMatch(r *http.Request) (string, bool) {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	return v, v != "" && v != "*"
}

// requireIfMatch answers 428 when the request carries no version token.
func requireIfMatch(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := ifMatch(r)
	if !ok {
		utils.ResponsePreconditionRequired(w, "If-Match header with the entity's ETag is required")
		return "", false
	}
	return token, true
}
