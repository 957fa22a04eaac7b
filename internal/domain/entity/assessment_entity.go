package entity

import "time"

// Assessment is a quiz/exam definition owned by the user who created it.
type Assessment struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Subject         string    `json:"subject"`
	Difficulty      string    `json:"difficulty"` // beginner, intermediate, advanced
	DurationMinutes int       `json:"duration_minutes"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
