package database

import (
	"context"
	"strings"
	"sync"
	"time"

	"book-review/models"

	"github.com/google/uuid"
)

type reviewKey struct {
	bookID string
	userID string
}

// MemoryDriver keeps everything in process memory. It enforces the same
// uniqueness rules as the database-backed drivers and is meant for local
// runs and tests.
type MemoryDriver struct {
	mu sync.RWMutex

	users       map[string]*models.User // by username
	books       []*models.Book
	booksByID   map[string]*models.Book
	reviews     []*models.Review
	reviewsByID map[string]*models.Review
	reviewPairs map[reviewKey]string

	now func() time.Time
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		users:       make(map[string]*models.User),
		booksByID:   make(map[string]*models.Book),
		reviewsByID: make(map[string]*models.Review),
		reviewPairs: make(map[reviewKey]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (d *MemoryDriver) Connect(ctx context.Context, conn models.Connection) error { return nil }
func (d *MemoryDriver) Disconnect(ctx context.Context) error                        { return nil }
func (d *MemoryDriver) Ping(ctx context.Context) error                              { return nil }
func (d *MemoryDriver) Migrate(ctx context.Context) error                           { return nil }

func (d *MemoryDriver) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[user.Username]; exists {
		return nil, ErrDuplicate
	}

	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = d.now()
	d.users[u.Username] = &u

	out := u
	return &out, nil
}

func (d *MemoryDriver) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (d *MemoryDriver) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := *book
	b.ID = uuid.NewString()
	b.CreatedAt = d.now()
	d.books = append(d.books, &b)
	d.booksByID[b.ID] = &b

	out := b
	return &out, nil
}

func (d *MemoryDriver) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b, ok := d.booksByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (d *MemoryDriver) ListBooks(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]models.Book, 0)
	var skipped int64
	for _, b := range d.books {
		if !containsFold(b.Author, filter.Author) || !containsFold(b.Genre, filter.Genre) {
			continue
		}
		if skipped < filter.Skip {
			skipped++
			continue
		}
		if filter.Limit > 0 && int64(len(result)) >= filter.Limit {
			break
		}
		result = append(result, *b)
	}
	return result, nil
}

func (d *MemoryDriver) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]models.Book, 0)
	for _, b := range d.books {
		if containsFold(b.Title, query) || containsFold(b.Author, query) {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (d *MemoryDriver) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := reviewKey{bookID: review.BookID, userID: review.UserID}
	if _, exists := d.reviewPairs[key]; exists {
		return nil, ErrDuplicate
	}

	r := *review
	r.ID = uuid.NewString()
	r.CreatedAt = d.now()
	r.UpdatedAt = r.CreatedAt
	d.reviews = append(d.reviews, &r)
	d.reviewsByID[r.ID] = &r
	d.reviewPairs[key] = r.ID

	out := r
	return &out, nil
}

func (d *MemoryDriver) FindReview(ctx context.Context, bookID, userID string) (*models.Review, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.reviewPairs[reviewKey{bookID: bookID, userID: userID}]
	if !ok {
		return nil, ErrNotFound
	}
	out := *d.reviewsByID[id]
	return &out, nil
}

func (d *MemoryDriver) UpdateOwnedReview(ctx context.Context, id, userID string, patch ReviewPatch) (*models.Review, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.reviewsByID[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	if patch.Rating != nil {
		r.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		r.Comment = *patch.Comment
	}
	r.UpdatedAt = d.now()

	out := *r
	return &out, nil
}

func (d *MemoryDriver) DeleteOwnedReview(ctx context.Context, id, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.reviewsByID[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}

	delete(d.reviewsByID, id)
	delete(d.reviewPairs, reviewKey{bookID: r.BookID, userID: r.UserID})
	for i, cur := range d.reviews {
		if cur.ID == id {
			d.reviews = append(d.reviews[:i], d.reviews[i+1:]...)
			break
		}
	}
	return nil
}

func (d *MemoryDriver) ListReviewsByBook(ctx context.Context, bookID string) ([]models.Review, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]models.Review, 0)
	for _, r := range d.reviews {
		if r.BookID == bookID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
