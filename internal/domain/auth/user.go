package auth

import "time"

// User is an account as returned by /users and /users/me.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateProfileRequest is the body of PATCH /users/me
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" form:"username"`
	Email    *string `json:"email,omitempty" form:"email" binding:"omitempty,email"`
	Password *string `json:"password,omitempty" form:"password" binding:"omitempty,min=6"`
}

// UpdateUserRequest is the body of PATCH /users/:id (admin)
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	Role     *Role   `json:"role,omitempty"`
}
