package dto

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Password string `json:"password" binding:"required,min=6"`
}

// UpdateProfileRequest is the JSON body for PATCH /profile. Empty fields
// are left unchanged.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,max=120"`
	NewPassword string `json:"new_password" binding:"omitempty,min=6"`
}

// UserResponse is returned when user info is needed (e.g. after login).
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
