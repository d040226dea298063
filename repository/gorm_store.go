package repository

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/models"
)

const (
	mysqlDuplicateEntry = 1062
	pgUniqueViolation   = "23505"
)

// GormStore implements Store on top of gorm (MySQL or PostgreSQL).
type GormStore struct {
	db     *gorm.DB
	admins []string
}

// NewGormStore creates a GormStore. Accounts registered with an email in admins get the admin role.
func NewGormStore(db *gorm.DB, admins []string) *GormStore {
	return &GormStore{db: db, admins: admins}
}

// CreateUser inserts user, assigning its role inside the same transaction as the uniqueness check.
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateEmail
		}
		user.Role = RoleFor(user.Email, s.admins)
		return tx.Create(user).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UserByEmail matches the stored address exactly, including case.
func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	if user.Email != email {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ListPosts returns every post with its author, newest first.
func (s *GormStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// PostByID loads a post with its author and its comments in posting order.
func (s *GormStore) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Comments.Author").
		First(&post, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.db.WithContext(ctx).Omit("Author", "Comments").Create(post).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return err
	}
	return nil
}

// UpdatePost overwrites the editable fields of an existing post.
func (s *GormStore) UpdatePost(ctx context.Context, id uint, changes PostChanges) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, id).Error; err != nil {
			return notFound(err)
		}
		return tx.Model(&post).Updates(map[string]any{
			"title":    changes.Title,
			"subtitle": changes.Subtitle,
			"img_url":  changes.ImgURL,
			"body":     changes.Body,
		}).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateTitle
	}
	return err
}

// DeletePost removes a post together with all of its comments.
func (s *GormStore) DeletePost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("blog_post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// CreateComment attaches a comment to an existing post.
func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, comment.PostID).Error; err != nil {
			return notFound(err)
		}
		return tx.Omit("Author").Create(comment).Error
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation recognises unique-key errors whether or not gorm translated them.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
