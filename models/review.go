package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book"`
	UserID    string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
