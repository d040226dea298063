// Package repository persists users, posts and comments.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/bloghub/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user with the same email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateTitle is returned when another post already uses the title.
	ErrDuplicateTitle = errors.New("post title already exists")
)

// PostChanges holds the editable fields of a post. Author and date never change after creation.
type PostChanges struct {
	Title    string
	Subtitle string
	ImgURL   string
	Body     string
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PostStore persists posts and their comments.
type PostStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	PostByID(ctx context.Context, id uint) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id uint, changes PostChanges) error
	DeletePost(ctx context.Context, id uint) error
	CreateComment(ctx context.Context, comment *models.Comment) error
}

// Store is everything the web layer needs from persistence.
type Store interface {
	UserStore
	PostStore
}

// RoleFor decides the role of a new account: accounts whose email is listed in admins become admins.
func RoleFor(email string, admins []string) string {
	for _, a := range admins {
		if strings.EqualFold(a, email) {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}
