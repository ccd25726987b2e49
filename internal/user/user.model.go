package user

import "time"

// Profile is the account data mirrored from Clerk. The user id is the Clerk
// subject and owns every other record.
type Profile struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
