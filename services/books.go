package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"book-review/database"
	"book-review/logging"
	"book-review/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type ListBooksParams struct {
	Page   int
	Limit  int
	Author string
	Genre  string
}

type BookService struct {
	books   database.BookRepository
	reviews database.ReviewRepository
	log     logging.Logger
}

func NewBookService(books database.BookRepository, reviews database.ReviewRepository, log logging.Logger) *BookService {
	return &BookService{books: books, reviews: reviews, log: log}
}

func (s *BookService) CreateBook(ctx context.Context, caller models.Caller, req models.CreateBookRequest) (*models.Book, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}

	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if author == "" {
		return nil, fmt.Errorf("%w: author is required", ErrValidation)
	}

	book, err := s.books.CreateBook(ctx, &models.Book{
		Title:     title,
		Author:    author,
		Genre:     strings.TrimSpace(req.Genre),
		CreatedBy: caller.UserID,
	})
	if err != nil {
		if errors.Is(err, database.ErrUnknownUser) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.log.Info(ctx, "book created", "book_id", book.ID, "user_id", caller.UserID)
	return book, nil
}

// ListBooks returns one page of books. Zero Page and Limit fall back to the
// defaults; Limit is capped at MaxLimit.
func (s *BookService) ListBooks(ctx context.Context, p ListBooksParams) ([]models.Book, error) {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Page < 1 {
		return nil, fmt.Errorf("%w: page must be a positive integer", ErrValidation)
	}
	if p.Limit < 1 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if int64(p.Page-1) > math.MaxInt64/int64(p.Limit) {
		return nil, fmt.Errorf("%w: page is too large", ErrValidation)
	}

	books, err := s.books.ListBooks(ctx, database.BookFilter{
		Author: p.Author,
		Genre:  p.Genre,
		Skip:   int64(p.Page-1) * int64(p.Limit),
		Limit:  int64(p.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *BookService) GetBookDetail(ctx context.Context, bookID string) (*models.BookDetail, error) {
	book, err := s.books.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	reviews, err := s.reviews.ListReviewsByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	return &models.BookDetail{
		Book:      *book,
		AvgRating: averageRating(reviews),
		Reviews:   reviews,
	}, nil
}

func (s *BookService) SearchBooks(ctx context.Context, q string) ([]models.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrInvalidQuery
	}

	books, err := s.books.SearchBooks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

// averageRating is nil for an empty list.
func averageRating(reviews []models.Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg
}
