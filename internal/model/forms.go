package model

import "time"

type Donation struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Volunteer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Skills       string    `json:"skills"`
	Availability string    `json:"availability"`
	Message      string    `json:"message"`
	RegisteredAt time.Time `json:"registered_at"`
}

type SuccessStory struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	IsPublished bool      `json:"is_published"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchQuery is write-only telemetry of an explicit search.
type SearchQuery struct {
	ID         int64     `json:"id"`
	SearchTerm string    `json:"search_term"`
	AgeRange   string    `json:"age_range"`
	Location   string    `json:"location"`
	Category   *string   `json:"category,omitempty"`
	SearchedAt time.Time `json:"searched_at"`
	UserIP     string    `json:"user_ip"`
}
