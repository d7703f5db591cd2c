package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-review/database/migrations"
	"book-review/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	reviewsBookFK = "reviews_book_id_fkey"
)

var gooseUpContext = goose.UpContext

type PostgreSQLDriver struct {
	pool    *pgxpool.Pool
	db      *sql.DB
	timeout time.Duration
}

func NewPostgreSQLDriver() *PostgreSQLDriver {
	return &PostgreSQLDriver{}
}

func newPostgreSQLDriverForDB(db *sql.DB, timeout time.Duration) *PostgreSQLDriver {
	return &PostgreSQLDriver{db: db, timeout: timeout}
}

func (d *PostgreSQLDriver) Connect(ctx context.Context, conn models.Connection) error {
	config, err := pgxpool.ParseConfig(conn.URI)
	if err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}
	if conn.Timeout > 0 {
		config.ConnConfig.ConnectTimeout = conn.Timeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping (host=%s, database=%s): %w",
			config.ConnConfig.Host, config.ConnConfig.Database, err)
	}

	d.pool = pool
	d.db = stdlib.OpenDBFromPool(pool)
	d.timeout = conn.Timeout
	return nil
}

func (d *PostgreSQLDriver) Disconnect(ctx context.Context) error {
	var err error
	if d.db != nil {
		err = d.db.Close()
		d.db = nil
	}
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	return err
}

func (d *PostgreSQLDriver) Ping(ctx context.Context) error {
	if d.db == nil {
		return ErrNotConnected
	}
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

func (d *PostgreSQLDriver) Migrate(ctx context.Context) error {
	if d.db == nil {
		return ErrNotConnected
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, d.db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (d *PostgreSQLDriver) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`

	out := *user
	err := d.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &out, nil
}

func (d *PostgreSQLDriver) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `SELECT id, username, password_hash, created_at FROM users
		WHERE username = $1`

	var u models.User
	err := d.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (d *PostgreSQLDriver) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if !validUUID(book.CreatedBy) {
		return nil, ErrUnknownUser
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `INSERT INTO books (title, author, genre, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	out := *book
	err := d.db.QueryRowContext(ctx, query, book.Title, book.Author, book.Genre, book.CreatedBy).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return &out, nil
}

const bookColumns = `id, title, author, genre, created_by, created_at`

func (d *PostgreSQLDriver) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	var b models.Book
	err := d.db.QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return &b, nil
}

func (d *PostgreSQLDriver) ListBooks(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `SELECT ` + bookColumns + ` FROM books
		WHERE author ILIKE $1 AND genre ILIKE $2
		ORDER BY created_at, id
		OFFSET $3 LIMIT $4`

	limit := sql.NullInt64{Int64: filter.Limit, Valid: filter.Limit > 0}
	rows, err := d.db.QueryContext(ctx, query,
		likePattern(filter.Author), likePattern(filter.Genre), filter.Skip, limit)
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	return scanBooks(rows)
}

func (d *PostgreSQLDriver) SearchBooks(ctx context.Context, q string) ([]models.Book, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `SELECT ` + bookColumns + ` FROM books
		WHERE title ILIKE $1 OR author ILIKE $1
		ORDER BY created_at, id`

	rows, err := d.db.QueryContext(ctx, query, likePattern(q))
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return scanBooks(rows)
}

func scanBooks(rows *sql.Rows) ([]models.Book, error) {
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

const reviewColumns = `id, book_id, user_id, rating, comment, created_at, updated_at`

func (d *PostgreSQLDriver) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if !validUUID(review.BookID) {
		return nil, ErrNotFound
	}
	if !validUUID(review.UserID) {
		return nil, ErrUnknownUser
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `INSERT INTO reviews (book_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	out := *review
	err := d.db.QueryRowContext(ctx, query, review.BookID, review.UserID, review.Rating, review.Comment).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return nil, ErrDuplicate
		case pgForeignKeyViolation:
			if pgConstraint(err) == reviewsBookFK {
				return nil, ErrNotFound
			}
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return &out, nil
}

func (d *PostgreSQLDriver) FindReview(ctx context.Context, bookID, userID string) (*models.Review, error) {
	if !validUUID(bookID) || !validUUID(userID) {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE book_id = $1 AND user_id = $2`

	return scanReview(d.db.QueryRowContext(ctx, query, bookID, userID))
}

func (d *PostgreSQLDriver) UpdateOwnedReview(ctx context.Context, id, userID string, patch ReviewPatch) (*models.Review, error) {
	if !validUUID(id) || !validUUID(userID) {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `UPDATE reviews
		SET rating = COALESCE($3, rating),
		    comment = COALESCE($4, comment),
		    updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + reviewColumns

	var rating sql.NullInt64
	if patch.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*patch.Rating), Valid: true}
	}
	var comment sql.NullString
	if patch.Comment != nil {
		comment = sql.NullString{String: *patch.Comment, Valid: true}
	}

	return scanReview(d.db.QueryRowContext(ctx, query, id, userID, rating, comment))
}

func (d *PostgreSQLDriver) DeleteOwnedReview(ctx context.Context, id, userID string) error {
	if !validUUID(id) || !validUUID(userID) {
		return ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *PostgreSQLDriver) ListReviewsByBook(ctx context.Context, bookID string) ([]models.Review, error) {
	if !validUUID(bookID) {
		return []models.Review{}, nil
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	query := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE book_id = $1
		ORDER BY created_at, id`

	rows, err := d.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.BookID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

func scanReview(row *sql.Row) (*models.Review, error) {
	var r models.Review
	err := row.Scan(&r.ID, &r.BookID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &r, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns s into a literal "contains" pattern for ILIKE.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
