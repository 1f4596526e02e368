package models

import (
	"time"
)

// Recommendation is one ranked book in an API response.
type Recommendation struct {
	ItemID   string  `json:"item_id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Genre    string  `json:"genre"`
	Origin   string  `json:"origin"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// RecommendationQuery is bound from the query string of the recommendation routes.
type RecommendationQuery struct {
	UserID string `form:"user_id" validate:"omitempty,max=64,printascii"`
	ItemID string `form:"item_id" validate:"omitempty,max=64,printascii"`
	Count  int    `form:"count" validate:"omitempty,min=1,max=100"`
}

type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Count           int              `json:"count"`
	UserID          string           `json:"user_id,omitempty"`
	ItemID          string           `json:"item_id,omitempty"`
	CacheHit        bool             `json:"cache_hit"`
	EngineVersion   int64            `json:"engine_version"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

// ChatResponse carries either Text or Recommendations, as named by Kind.
type ChatResponse struct {
	Kind            string           `json:"kind"`
	Text            string           `json:"text,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

type ReloadRequest struct {
	Reason    string `json:"reason" validate:"max=200"`
	Broadcast bool   `json:"broadcast"`
}

type ReloadResponse struct {
	Status    string    `json:"status"`
	EventID   string    `json:"event_id,omitempty"`
	Items     int       `json:"items,omitempty"`
	Terms     int       `json:"terms,omitempty"`
	Ratings   int       `json:"ratings,omitempty"`
	BuiltAt   time.Time `json:"built_at,omitempty"`
	Requested time.Time `json:"requested_at"`
}
