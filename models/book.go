package models

import "time"

type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookDetail is a book together with its reviews and their mean rating.
// AvgRating is nil when the book has no reviews.
type BookDetail struct {
	Book      Book     `json:"book"`
	AvgRating *float64 `json:"avgRating"`
	Reviews   []Review `json:"reviews"`
}
