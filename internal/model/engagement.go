package model

import "time"

// LandTarget is one of the votable filming locations.
type LandTarget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Idea statuses.
const (
	IdeaGathering = "gathering"
	IdeaGreenlit  = "greenlit"
)

// FilmIdea is a community-submitted film pitch.  SupportCount always equals
// the number of idea_supporters rows for the idea.
type FilmIdea struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Logline      string    `json:"logline"`
	Description  string    `json:"description"`
	Genre        string    `json:"genre"`
	Submitter    string    `json:"submitter"`
	SubmitterID  string    `json:"submitter_id"`
	ImageURL     *string   `json:"image_url,omitempty"`
	Status       string    `json:"status"`
	SupportCount int64     `json:"support_count"`
	SupportGoal  int64     `json:"support_goal"`
	CreatedAt    time.Time `json:"submitted_date"`
}
