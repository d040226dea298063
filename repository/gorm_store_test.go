package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/bloghub/models"
)

func newGormStore(t *testing.T, admins ...string) (*GormStore, *gorm.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "blog.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormStore(db, admins), db
}

func mustUser(t *testing.T, s *GormStore, email, name string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: name, PasswordHash: "digest"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func mustPost(t *testing.T, s *GormStore, author *models.User, title string) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID: author.ID,
		Title:    title,
		Subtitle: "sub",
		Date:     "October 16, 2026",
		Body:     "<p>body</p>",
		ImgURL:   "https://example.com/a.png",
	}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func TestGormStoreUsers(t *testing.T) {
	s, _ := newGormStore(t, "admin@example.com")
	ctx := context.Background()

	admin := mustUser(t, s, "admin@example.com", "Angela")
	reader := mustUser(t, s, "reader@example.com", "Rita")
	assert.True(t, admin.IsAdmin())
	assert.False(t, reader.IsAdmin())

	err := s.CreateUser(ctx, &models.User{Email: "reader@example.com", Name: "Again", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := s.UserByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Rita", got.Name)
	assert.Equal(t, "digest", got.PasswordHash)

	_, err = s.UserByEmail(ctx, "Reader@Example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.UserByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStorePosts(t *testing.T) {
	s, _ := newGormStore(t, "admin@example.com")
	ctx := context.Background()
	admin := mustUser(t, s, "admin@example.com", "Angela")

	first := mustPost(t, s, admin, "First")
	second := mustPost(t, s, admin, "Second")

	err := s.CreatePost(ctx, &models.Post{AuthorID: admin.ID, Title: "First", Subtitle: "s", Date: "d", Body: "b", ImgURL: "u"})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, "Angela", posts[0].Author.Name)

	changes := PostChanges{Title: "Second", Subtitle: "s", ImgURL: "u", Body: "b"}
	assert.ErrorIs(t, s.UpdatePost(ctx, first.ID, changes), ErrDuplicateTitle)
	assert.ErrorIs(t, s.UpdatePost(ctx, 999, changes), ErrNotFound)

	changes.Title = "First, edited"
	require.NoError(t, s.UpdatePost(ctx, first.ID, changes))
	got, err := s.PostByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First, edited", got.Title)
	assert.Equal(t, "b", got.Body)
	assert.Equal(t, admin.ID, got.AuthorID)
	assert.Equal(t, "October 16, 2026", got.Date)

	_, err = s.PostByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreComments(t *testing.T) {
	s, db := newGormStore(t, "admin@example.com")
	ctx := context.Background()
	admin := mustUser(t, s, "admin@example.com", "Angela")
	reader := mustUser(t, s, "reader@example.com", "Rita")
	post := mustPost(t, s, admin, "Thread")
	other := mustPost(t, s, admin, "Other")

	for _, text := range []string{"one", "two"} {
		require.NoError(t, s.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: reader.ID, Text: text}))
	}
	require.NoError(t, s.CreateComment(ctx, &models.Comment{PostID: other.ID, AuthorID: reader.ID, Text: "elsewhere"}))

	err := s.CreateComment(ctx, &models.Comment{PostID: 999, AuthorID: reader.ID, Text: "orphan"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.PostByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "one", got.Comments[0].Text)
	assert.Equal(t, "two", got.Comments[1].Text)
	assert.Equal(t, "Rita", got.Comments[0].Author.Name)

	require.NoError(t, s.DeletePost(ctx, post.ID))
	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), ErrNotFound)

	var left int64
	require.NoError(t, db.Model(&models.Comment{}).Where("blog_post_id = ?", post.ID).Count(&left).Error)
	assert.Zero(t, left)
	require.NoError(t, db.Model(&models.Comment{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}
