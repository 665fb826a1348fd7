package users

import "time"

// User is a staff account.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Username    string `json:"username" validate:"required,min=3,max=100"`
	DisplayName string `json:"displayName" validate:"omitempty,max=200"`
	Password    string `json:"password" validate:"required,min=8,max=200"`
	Role        string `json:"role" validate:"required,oneof=admin cashier"`
}

// UpdateUserInput carries updatable account fields. Empty password leaves the
// current one in place.
type UpdateUserInput struct {
	DisplayName string `json:"displayName" validate:"omitempty,max=200"`
	Password    string `json:"password" validate:"omitempty,min=8,max=200"`
	Role        string `json:"role" validate:"required,oneof=admin cashier"`
}
