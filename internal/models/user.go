package models

import "time"

// User represents a registered chat user
type User struct {
	ID         string    `json:"_id" db:"id"`
	Email      string    `json:"email" db:"email"`
	FullName   string    `json:"fullName" db:"full_name"`
	Password   string    `json:"-" db:"password_hash"` // Never expose in JSON
	ProfilePic string    `json:"profilePic" db:"profile_pic"`
	Bio        string    `json:"bio" db:"bio"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// UserResponse is what we send to clients (without sensitive data)
type UserResponse struct {
	ID         string    `json:"_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	ProfilePic string    `json:"profilePic"`
	Bio        string    `json:"bio"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		ProfilePic: u.ProfilePic,
		Bio:        u.Bio,
		CreatedAt:  u.CreatedAt,
	}
}

// ProfileUpdate holds the optional fields of a profile update
type ProfileUpdate struct {
	FullName   *string
	Bio        *string
	ProfilePic *string
}
