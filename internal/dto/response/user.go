package response

import (
	"cinema-core/internal/data/entity"
)

// UserResponse never carries the password hash.
type UserResponse struct {
	ID     string `json:"id"`
	Login  string `json:"login"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func UserToResponse(user entity.User) UserResponse {
	data := user.Data()
	return UserResponse{
		ID:     data.ID.String(),
		Login:  data.Login,
		Role:   string(user.Role()),
		Active: data.Active,
	}
}

func UsersToResponse(users []entity.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserToResponse(u))
	}
	return out
}
