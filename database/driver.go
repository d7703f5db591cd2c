package database

import (
	"context"
	"fmt"
	"time"

	"book-review/models"
)

type UserRepository interface {
	// CreateUser returns ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type BookRepository interface {
	CreateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]models.Book, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
}

type ReviewRepository interface {
	// CreateReview returns ErrDuplicate when the user already reviewed the book.
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	FindReview(ctx context.Context, bookID, userID string) (*models.Review, error)
	// UpdateOwnedReview and DeleteOwnedReview only touch a review with the given id
	// whose owner is userID, and return ErrNotFound otherwise.
	UpdateOwnedReview(ctx context.Context, id, userID string, patch ReviewPatch) (*models.Review, error)
	DeleteOwnedReview(ctx context.Context, id, userID string) error
	ListReviewsByBook(ctx context.Context, bookID string) ([]models.Review, error)
}

// BookFilter selects a page of books. Author and Genre are case-insensitive
// literal substrings; empty values do not filter.
type BookFilter struct {
	Author string
	Genre  string
	Skip   int64
	Limit  int64
}

type ReviewPatch struct {
	Rating  *int
	Comment *string
}

// DatabaseDriver is a connected store holding users, books and reviews.
type DatabaseDriver interface {
	UserRepository
	BookRepository
	ReviewRepository

	Connect(ctx context.Context, conn models.Connection) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	// Migrate creates the schema and the uniqueness constraints the stores rely on.
	Migrate(ctx context.Context) error
}

type DriverFactory struct{}

func NewDriverFactory() *DriverFactory {
	return &DriverFactory{}
}

func (f *DriverFactory) CreateDriver(dbType models.DatabaseType) (DatabaseDriver, error) {
	switch dbType {
	case models.MongoDB:
		return NewMongoDBDriver(), nil
	case models.PostgreSQL:
		return NewPostgreSQLDriver(), nil
	case models.Memory:
		return NewMemoryDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", dbType)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
