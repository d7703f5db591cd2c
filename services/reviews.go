package services

import (
	"context"
	"errors"
	"fmt"

	"book-review/database"
	"book-review/logging"
	"book-review/models"
)

type ReviewService struct {
	books   database.BookRepository
	reviews database.ReviewRepository
	log     logging.Logger
}

func NewReviewService(books database.BookRepository, reviews database.ReviewRepository, log logging.Logger) *ReviewService {
	return &ReviewService{books: books, reviews: reviews, log: log}
}

func validateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, models.MinRating, models.MaxRating)
	}
	return nil
}

func (s *ReviewService) CreateReview(ctx context.Context, caller models.Caller, bookID string, req models.CreateReviewRequest) (*models.Review, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	if _, err := s.books.GetBookByID(ctx, bookID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	// Fast path only; the store's unique constraint settles concurrent creates.
	_, err := s.reviews.FindReview(ctx, bookID, caller.UserID)
	switch {
	case err == nil:
		return nil, ErrAlreadyReviewed
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("find review: %w", err)
	}

	review, err := s.reviews.CreateReview(ctx, &models.Review{
		BookID:  bookID,
		UserID:  caller.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return nil, ErrAlreadyReviewed
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, database.ErrUnknownUser):
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.log.Info(ctx, "review created", "review_id", review.ID, "book_id", bookID, "user_id", caller.UserID)
	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, caller models.Caller, reviewID string, req models.UpdateReviewRequest) (*models.Review, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}
	if req.Rating != nil {
		if err := validateRating(*req.Rating); err != nil {
			return nil, err
		}
	}

	review, err := s.reviews.UpdateOwnedReview(ctx, reviewID, caller.UserID, database.ReviewPatch{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFoundOrNotOwner
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, caller models.Caller, reviewID string) error {
	if caller.UserID == "" {
		return ErrUnauthorized
	}

	if err := s.reviews.DeleteOwnedReview(ctx, reviewID, caller.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFoundOrNotOwner
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.log.Info(ctx, "review deleted", "review_id", reviewID, "user_id", caller.UserID)
	return nil
}
