package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"book-review/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection   = "users"
	booksCollection   = "books"
	reviewsCollection = "reviews"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type bookDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Author    string             `bson:"author"`
	Genre     string             `bson:"genre"`
	CreatedBy primitive.ObjectID `bson:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Book      primitive.ObjectID `bson:"book"`
	User      primitive.ObjectID `bson:"user"`
	Rating    int                `bson:"rating"`
	Comment   string             `bson:"comment"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type MongoDBDriver struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	now     func() time.Time
}

func NewMongoDBDriver() *MongoDBDriver {
	return &MongoDBDriver{now: func() time.Time { return time.Now().UTC() }}
}

// newMongoDBDriverForDatabase binds the driver to an already connected database.
func newMongoDBDriverForDatabase(db *mongo.Database, timeout time.Duration) *MongoDBDriver {
	d := NewMongoDBDriver()
	d.db = db
	d.timeout = timeout
	return d
}

func (d *MongoDBDriver) Connect(ctx context.Context, conn models.Connection) error {
	clientOptions := options.Client().ApplyURI(conn.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("mongodb ping: %w", err)
	}

	d.client = client
	d.db = client.Database(conn.Database)
	d.timeout = conn.Timeout
	return nil
}

func (d *MongoDBDriver) Disconnect(ctx context.Context) error {
	if d.client != nil {
		return d.client.Disconnect(ctx)
	}
	return nil
}

func (d *MongoDBDriver) Ping(ctx context.Context) error {
	if d.client == nil {
		return ErrNotConnected
	}
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()
	return d.client.Ping(ctx, nil)
}

// Migrate creates the unique indexes on users.username and reviews.(book,user).
func (d *MongoDBDriver) Migrate(ctx context.Context) error {
	if d.db == nil {
		return ErrNotConnected
	}

	_, err := d.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = d.db.Collection(reviewsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "book", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("book_user_unique"),
		},
		{
			Keys:    bson.D{{Key: "user", Value: 1}},
			Options: options.Index().SetName("user"),
		},
	})
	if err != nil {
		return fmt.Errorf("create reviews indexes: %w", err)
	}
	return nil
}

func (d *MongoDBDriver) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    d.now(),
	}
	if _, err := d.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	var doc userDocument
	err := d.db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	createdBy, err := primitive.ObjectIDFromHex(book.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id %q: %w", book.CreatedBy, err)
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	doc := bookDocument{
		ID:        primitive.NewObjectID(),
		Title:     book.Title,
		Author:    book.Author,
		Genre:     book.Genre,
		CreatedBy: createdBy,
		CreatedAt: d.now(),
	}
	if _, err := d.db.Collection(booksCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	var doc bookDocument
	if err := d.db.Collection(booksCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) ListBooks(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	return d.findBooks(ctx, bookListFilter(filter), opts)
}

func (d *MongoDBDriver) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return d.findBooks(ctx, bookSearchFilter(query), opts)
}

func (d *MongoDBDriver) findBooks(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Book, error) {
	cursor, err := d.db.Collection(booksCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}

	books := make([]models.Book, 0, len(docs))
	for i := range docs {
		books = append(books, *docs[i].toModel())
	}
	return books, nil
}

func (d *MongoDBDriver) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	bookID, err := primitive.ObjectIDFromHex(review.BookID)
	if err != nil {
		return nil, ErrNotFound
	}
	userID, err := primitive.ObjectIDFromHex(review.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", review.UserID, err)
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	now := d.now()
	doc := reviewDocument{
		ID:        primitive.NewObjectID(),
		Book:      bookID,
		User:      userID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := d.db.Collection(reviewsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) FindReview(ctx context.Context, bookID, userID string) (*models.Review, error) {
	filter, ok := ownedFilter("book", bookID, userID)
	if !ok {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	var doc reviewDocument
	if err := d.db.Collection(reviewsCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) UpdateOwnedReview(ctx context.Context, id, userID string, patch ReviewPatch) (*models.Review, error) {
	filter, ok := ownedFilter("_id", id, userID)
	if !ok {
		return nil, ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	set := bson.M{"updatedAt": d.now()}
	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}
	if patch.Comment != nil {
		set["comment"] = *patch.Comment
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc reviewDocument
	err := d.db.Collection(reviewsCollection).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return doc.toModel(), nil
}

func (d *MongoDBDriver) DeleteOwnedReview(ctx context.Context, id, userID string) error {
	filter, ok := ownedFilter("_id", id, userID)
	if !ok {
		return ErrNotFound
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.db.Collection(reviewsCollection).DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *MongoDBDriver) ListReviewsByBook(ctx context.Context, bookID string) ([]models.Review, error) {
	oid, err := primitive.ObjectIDFromHex(bookID)
	if err != nil {
		return []models.Review{}, nil
	}

	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := d.db.Collection(reviewsCollection).Find(ctx, bson.M{"book": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	reviews := make([]models.Review, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, *docs[i].toModel())
	}
	return reviews, nil
}

// containsPattern matches s literally anywhere in the field, ignoring case.
func containsPattern(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func bookListFilter(f BookFilter) bson.M {
	filter := bson.M{}
	if f.Author != "" {
		filter["author"] = containsPattern(f.Author)
	}
	if f.Genre != "" {
		filter["genre"] = containsPattern(f.Genre)
	}
	return filter
}

func bookSearchFilter(q string) bson.M {
	re := containsPattern(q)
	return bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"author": re},
	}}
}

// ownedFilter builds {key: id, user: userID}. It reports false when either id
// is not a valid ObjectID, which callers treat as not found.
func ownedFilter(key, id, userID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	return bson.M{key: oid, "user": uid}, true
}

func (doc *userDocument) toModel() *models.User {
	return &models.User{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}
}

func (doc *bookDocument) toModel() *models.Book {
	return &models.Book{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Author:    doc.Author,
		Genre:     doc.Genre,
		CreatedBy: doc.CreatedBy.Hex(),
		CreatedAt: doc.CreatedAt,
	}
}

func (doc *reviewDocument) toModel() *models.Review {
	return &models.Review{
		ID:        doc.ID.Hex(),
		BookID:    doc.Book.Hex(),
		UserID:    doc.User.Hex(),
		Rating:    doc.Rating,
		Comment:   doc.Comment,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
