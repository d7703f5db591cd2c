package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"book-review/database"
	"book-review/logging"
	"book-review/models"
	"book-review/utils"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	store   *database.MemoryDriver
	auth    *AuthService
	books   *BookService
	reviews *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := database.NewMemoryDriver()
	log := logging.NewNop()
	return &testEnv{
		store:   store,
		auth:    NewAuthService(store, utils.NewTokenManager(testSecret, time.Hour), log),
		books:   NewBookService(store, store, log),
		reviews: NewReviewService(store, store, log),
	}
}

// signup registers a user and returns the caller identity for it.
func (e *testEnv) signup(t *testing.T, username string) models.Caller {
	t.Helper()
	id, err := e.auth.Signup(context.Background(), username, "pw-"+username)
	require.NoError(t, err)
	return models.Caller{UserID: id, Username: username}
}

func (e *testEnv) book(t *testing.T, caller models.Caller, title, author, genre string) *models.Book {
	t.Helper()
	b, err := e.books.CreateBook(context.Background(), caller, models.CreateBookRequest{Title: title, Author: author, Genre: genre})
	require.NoError(t, err)
	return b
}

var errStoreDown = errors.New("store down")

// failingStore wraps a MemoryDriver and fails the overridden calls.
type failingStore struct {
	*database.MemoryDriver
}

func (failingStore) CreateUser(context.Context, *models.User) (*models.User, error) {
	return nil, errStoreDown
}

func (failingStore) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errStoreDown
}

func (failingStore) ListBooks(context.Context, database.BookFilter) ([]models.Book, error) {
	return nil, errStoreDown
}

func (failingStore) DeleteOwnedReview(context.Context, string, string) error {
	return errStoreDown
}

// ghostUserStore behaves like a store that no longer holds the caller.
type ghostUserStore struct {
	*database.MemoryDriver
}

func (ghostUserStore) CreateBook(context.Context, *models.Book) (*models.Book, error) {
	return nil, database.ErrUnknownUser
}

func (ghostUserStore) CreateReview(context.Context, *models.Review) (*models.Review, error) {
	return nil, database.ErrUnknownUser
}
