package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"book-review/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoDBDriver_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	ns := func(coll string) string { return "bookreview." + coll }
	userID := primitive.NewObjectID()
	bookID := primitive.NewObjectID()
	reviewID := primitive.NewObjectID()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("create user", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u, err := d.CreateUser(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
		require.NoError(mt, err)
		assert.Len(mt, u.ID, 24)
		assert.Equal(mt, "alice", u.Username)
	})

	mt.Run("create user duplicate", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := d.CreateUser(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("get user by username", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns(usersCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: userID},
			{Key: "username", Value: "alice"},
			{Key: "passwordHash", Value: "hash"},
			{Key: "createdAt", Value: now},
		}))

		u, err := d.GetUserByUsername(context.Background(), "alice")
		require.NoError(mt, err)
		assert.Equal(mt, userID.Hex(), u.ID)
		assert.Equal(mt, "hash", u.PasswordHash)
	})

	mt.Run("get user missing", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(usersCollection), mtest.FirstBatch))

		_, err := d.GetUserByUsername(context.Background(), "ghost")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get book invalid id", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)

		_, err := d.GetBookByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list books", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		first := bson.D{
			{Key: "_id", Value: bookID},
			{Key: "title", Value: "Dune"},
			{Key: "author", Value: "Frank Herbert"},
			{Key: "genre", Value: "Sci-Fi"},
			{Key: "createdBy", Value: userID},
			{Key: "createdAt", Value: now},
		}
		second := bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "title", Value: "Children of Dune"},
			{Key: "author", Value: "Frank Herbert"},
			{Key: "genre", Value: "Sci-Fi"},
			{Key: "createdBy", Value: userID},
			{Key: "createdAt", Value: now},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(booksCollection), mtest.FirstBatch, first, second))

		books, err := d.ListBooks(context.Background(), BookFilter{Author: "herbert", Limit: 10})
		require.NoError(mt, err)
		require.Len(mt, books, 2)
		assert.Equal(mt, bookID.Hex(), books[0].ID)
		assert.Equal(mt, userID.Hex(), books[0].CreatedBy)
		assert.Equal(mt, "Children of Dune", books[1].Title)
	})

	mt.Run("search books empty", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(booksCollection), mtest.FirstBatch))

		books, err := d.SearchBooks(context.Background(), "nothing")
		require.NoError(mt, err)
		assert.NotNil(mt, books)
		assert.Empty(mt, books)
	})

	mt.Run("create review duplicate", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := d.CreateReview(context.Background(), &models.Review{
			BookID: bookID.Hex(), UserID: userID.Hex(), Rating: 5,
		})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("update owned review", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: reviewID},
				{Key: "book", Value: bookID},
				{Key: "user", Value: userID},
				{Key: "rating", Value: 2},
				{Key: "comment", Value: "changed my mind"},
				{Key: "createdAt", Value: now},
				{Key: "updatedAt", Value: now.Add(time.Hour)},
			}},
		})

		rating := 2
		r, err := d.UpdateOwnedReview(context.Background(), reviewID.Hex(), userID.Hex(), ReviewPatch{Rating: &rating})
		require.NoError(mt, err)
		assert.Equal(mt, 2, r.Rating)
		assert.Equal(mt, bookID.Hex(), r.BookID)
		assert.Equal(mt, "changed my mind", r.Comment)
	})

	mt.Run("update review not owned", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		comment := "x"
		_, err := d.UpdateOwnedReview(context.Background(), reviewID.Hex(), primitive.NewObjectID().Hex(), ReviewPatch{Comment: &comment})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete owned review", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}},
		)

		require.NoError(mt, d.DeleteOwnedReview(context.Background(), reviewID.Hex(), userID.Hex()))
		assert.ErrorIs(mt, d.DeleteOwnedReview(context.Background(), reviewID.Hex(), userID.Hex()), ErrNotFound)
		assert.ErrorIs(mt, d.DeleteOwnedReview(context.Background(), "bad", userID.Hex()), ErrNotFound)
	})

	mt.Run("migrate creates unique indexes", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		require.NoError(mt, d.Migrate(context.Background()))

		type indexSpec struct {
			collection string
			keys       []string
			unique     bool
		}
		got := map[string]indexSpec{}
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "createIndexes" {
				continue
			}
			coll := evt.Command.Lookup("createIndexes").StringValue()
			indexes, err := evt.Command.Lookup("indexes").Array().Values()
			require.NoError(mt, err)
			for _, v := range indexes {
				idx := v.Document()
				elems, err := idx.Lookup("key").Document().Elements()
				require.NoError(mt, err)
				var keys []string
				for _, e := range elems {
					keys = append(keys, e.Key())
				}
				unique, _ := idx.Lookup("unique").BooleanOK()
				got[idx.Lookup("name").StringValue()] = indexSpec{collection: coll, keys: keys, unique: unique}
			}
		}

		assert.Equal(mt, map[string]indexSpec{
			"username_unique":  {collection: usersCollection, keys: []string{"username"}, unique: true},
			"book_user_unique": {collection: reviewsCollection, keys: []string{"book", "user"}, unique: true},
			"user":             {collection: reviewsCollection, keys: []string{"user"}},
		}, got)
	})

	mt.Run("migrate index failure", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    86,
			Message: "IndexKeySpecsConflict",
			Name:    "IndexKeySpecsConflict",
		}))

		assert.ErrorContains(mt, d.Migrate(context.Background()), "create users index")
	})

	mt.Run("list reviews by book", func(mt *mtest.T) {
		d := newMongoDBDriverForDatabase(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(reviewsCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: reviewID},
			{Key: "book", Value: bookID},
			{Key: "user", Value: userID},
			{Key: "rating", Value: 4},
			{Key: "comment", Value: ""},
			{Key: "createdAt", Value: now},
			{Key: "updatedAt", Value: now},
		}))

		reviews, err := d.ListReviewsByBook(context.Background(), bookID.Hex())
		require.NoError(mt, err)
		require.Len(mt, reviews, 1)
		assert.Equal(mt, 4, reviews[0].Rating)
		assert.Equal(mt, userID.Hex(), reviews[0].UserID)
	})
}

func TestBookFilters(t *testing.T) {
	f := bookListFilter(BookFilter{Author: "a.b", Genre: ""})
	require.Contains(t, f, "author")
	assert.NotContains(t, f, "genre")
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, f["author"])

	assert.Empty(t, bookListFilter(BookFilter{}))

	s := bookSearchFilter("(dune)")
	or, ok := s["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 2)
	assert.Equal(t, bson.M{"title": primitive.Regex{Pattern: `\(dune\)`, Options: "i"}}, or[0])
}

func TestMongoDBDriver_NotConnected(t *testing.T) {
	d := NewMongoDBDriver()
	assert.ErrorIs(t, d.Ping(context.Background()), ErrNotConnected)
	assert.ErrorIs(t, d.Migrate(context.Background()), ErrNotConnected)
	assert.NoError(t, d.Disconnect(context.Background()))
}

// TestMongoDBDriver_Integration runs against a real server when TEST_MONGODB_URI is set.
func TestMongoDBDriver_Integration(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("bookreview_test_%d", time.Now().UnixNano())
	d := NewMongoDBDriver()
	require.NoError(t, d.Connect(ctx, models.Connection{Type: models.MongoDB, URI: uri, Database: dbName, Timeout: 5 * time.Second}))
	t.Cleanup(func() {
		_ = d.db.Drop(ctx)
		_ = d.Disconnect(ctx)
	})
	require.NoError(t, d.Migrate(ctx))

	u, err := d.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = d.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)

	b, err := d.CreateBook(ctx, &models.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi", CreatedBy: u.ID})
	require.NoError(t, err)

	found, err := d.SearchBooks(ctx, "herb")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	r, err := d.CreateReview(ctx, &models.Review{BookID: b.ID, UserID: u.ID, Rating: 5})
	require.NoError(t, err)
	_, err = d.CreateReview(ctx, &models.Review{BookID: b.ID, UserID: u.ID, Rating: 4})
	assert.ErrorIs(t, err, ErrDuplicate)

	other := primitive.NewObjectID().Hex()
	assert.ErrorIs(t, d.DeleteOwnedReview(ctx, r.ID, other), ErrNotFound)
	require.NoError(t, d.DeleteOwnedReview(ctx, r.ID, u.ID))
}
