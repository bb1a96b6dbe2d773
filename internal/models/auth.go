package models

// SignupRequest represents registration request body
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the update-profile request body.
// ProfilePic is a data URL when set.
type UpdateProfileRequest struct {
	FullName   string `json:"fullName,omitempty"`
	Bio        string `json:"bio,omitempty"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Success  bool          `json:"success"`
	UserData *UserResponse `json:"userData,omitempty"`
	Token    string        `json:"token,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// UserEnvelope is returned by check and update-profile
type UserEnvelope struct {
	Success bool          `json:"success"`
	User    *UserResponse `json:"user,omitempty"`
	Message string        `json:"message,omitempty"`
}

// StatusResponse is the bare acknowledgement envelope
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
