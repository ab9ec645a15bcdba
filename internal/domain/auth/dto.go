// internal/domain/auth/dto.go
package auth

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email      string `json:"email" form:"email" binding:"required,email"`
	Password   string `json:"password" form:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe" form:"remember_me"`
}

// LoginResponse is what the backend returns on a successful login
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6"`
}

// RegisterResponse is the backend acknowledgement of a registration.
type RegisterResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}
