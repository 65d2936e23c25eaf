package auth

import "time"

const UserStatusActive = "active"

// FallbackDisplayName is used when a signed-in user has no readable profile.
const FallbackDisplayName = "User"

type UserContext struct {
	UserID       string
	Email        string
	RoleName     string
	DepartmentID string
	SessionID    string
}

type AuthUser struct {
	ID       string
	Email    string
	Password string
	Status   string
}

type Profile struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	Role         string `json:"role"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	Fallback     bool   `json:"-"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Profile   Profile   `json:"profile"`
}

type Account struct {
	Email        string
	Password     string
	FullName     string
	Role         string
	DepartmentID string
	AvatarURL    string
}
