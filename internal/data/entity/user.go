package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UserRole is the discriminator stored with every user document.
type UserRole string

const (
	RoleClient UserRole = "client"
	RoleStaff  UserRole = "staff"
	RoleAdmin  UserRole = "admin"
)

// Roles lists every variant of the user union.
var Roles = []UserRole{RoleClient, RoleStaff, RoleAdmin}

var ErrUnknownRole = errors.New("unknown user role")

func ParseRole(s string) (UserRole, error) {
	switch r := UserRole(s); r {
	case RoleClient, RoleStaff, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Account holds the fields common to all user variants. Password is
// credential material that has already been hashed by the caller.
type Account struct {
	Base
	Login    string `json:"user_login" validate:"required,min=8,max=20,login"`
	Password string `json:"user_password" validate:"required"`
	Active   bool   `json:"user_status_active"`
}

// User is a closed union of Client, Staff and Admin. The unexported
// method keeps other packages from adding variants.
type User interface {
	Canonical
	Role() UserRole
	Data() *Account
	sealed()
}

type Client struct{ Account }
type Staff struct{ Account }
type Admin struct{ Account }

func (c *Client) Role() UserRole { return RoleClient }
func (s *Staff) Role() UserRole  { return RoleStaff }
func (a *Admin) Role() UserRole  { return RoleAdmin }

func (c *Client) Data() *Account { return &c.Account }
func (s *Staff) Data() *Account  { return &s.Account }
func (a *Admin) Data() *Account  { return &a.Account }

func (*Client) sealed() {}
func (*Staff) sealed()  {}
func (*Admin) sealed()  {}

func (c *Client) Projection() map[string]any { return c.Account.projection(RoleClient) }
func (s *Staff) Projection() map[string]any  { return s.Account.projection(RoleStaff) }
func (a *Admin) Projection() map[string]any  { return a.Account.projection(RoleAdmin) }

// Kind is the same for every variant: they share one collection.
func (a *Account) Kind() string {
	return "user"
}

func (a *Account) projection(role UserRole) map[string]any {
	return map[string]any{
		FieldID:              a.ID.String(),
		FieldUserRole:        string(role),
		FieldUserLogin:       a.Login,
		"user_password":      a.Password,
		"user_status_active": a.Active,
	}
}

// NewUser builds the variant named by role around a copy of acc.
func NewUser(role UserRole, acc Account) (User, error) {
	switch role {
	case RoleClient:
		return &Client{Account: acc}, nil
	case RoleStaff:
		return &Staff{Account: acc}, nil
	case RoleAdmin:
		return &Admin{Account: acc}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
}

// CloneUser returns an independent copy of u.
func CloneUser(u User) User {
	clone, err := NewUser(u.Role(), *u.Data())
	if err != nil {
		panic(err)
	}
	return clone
}

type userDocument struct {
	Account
	Role UserRole `json:"user_role"`
}

// EncodeUser writes the common fields together with the discriminator.
func EncodeUser(u User) ([]byte, error) {
	return json.Marshal(userDocument{Account: *u.Data(), Role: u.Role()})
}

// DecodeUser inspects the discriminator and constructs the matching
// variant. A missing or unknown tag is an error, never a default.
func DecodeUser(doc []byte) (User, error) {
	var d userDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	u, err := NewUser(d.Role, d.Account)
	if err != nil {
		return nil, fmt.Errorf("decode user %s: %w", d.ID, err)
	}
	return u, nil
}
