package user

import "glowUpAPI/internal/progress"

type UpsertProfileRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Email     string `json:"email"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ProfileResponse is the dashboard header: who the user is and how far they
// are into their current level.
type ProfileResponse struct {
	Profile           *Profile                 `json:"profile,omitempty"`
	Points            progress.UserPointsState `json:"points"`
	PointsIntoLevel   int                      `json:"pointsIntoLevel"`
	PointsToNextLevel int                      `json:"pointsToNextLevel"`
}
