package request

type UserRequest struct {
	Login    string `json:"login" validate:"required,min=8,max=20,login"`
	Password string `json:"password" validate:"required,min=8,max=40"`
}

// UserUpdateRequest leaves the stored password in place when Password is
// empty.
type UserUpdateRequest struct {
	Login    string `json:"login" validate:"required,min=8,max=20,login"`
	Password string `json:"password" validate:"omitempty,min=8,max=40"`
}
