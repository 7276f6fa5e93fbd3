package domain

import "time"

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type RoadmapItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Phase     string    `json:"phase"`
	Done      bool      `json:"done"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"created_at"`
}

type IntelAsset struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"-"`
	MinClearance int    `json:"minClearance"`
}
