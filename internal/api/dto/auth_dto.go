package dto

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username  string `json:"username" validate:"notblank,max=64"`
	Password  string `json:"password" validate:"required,min=6,max=128"`
	FirstName string `json:"firstname" validate:"max=100"`
	LastName  string `json:"lastname" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
