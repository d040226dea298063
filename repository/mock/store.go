// Package mock provides an in-memory repository.Store for tests.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/repository"
)

// Store keeps users, posts and comments in maps and mirrors GormStore semantics,
// including cascading comment deletion and preloaded authors.
type Store struct {
	mu       sync.RWMutex
	admins   []string
	users    map[uint]models.User
	posts    map[uint]models.Post
	comments map[uint]models.Comment
	nextID   uint
}

// NewStore returns an empty Store. Emails in admins register as admins.
func NewStore(admins ...string) *Store {
	return &Store{
		admins:   admins,
		users:    map[uint]models.User{},
		posts:    map[uint]models.Post{},
		comments: map[uint]models.Comment{},
		nextID:   1,
	}
}

func (s *Store) id() uint {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.Role = repository.RoleFor(user.Email, s.admins)
	user.ID = s.id()
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListPosts(_ context.Context) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		p.Author = s.users[p.AuthorID]
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts, nil
}

func (s *Store) PostByID(_ context.Context, id uint) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Author = s.users[p.AuthorID]
	p.Comments = s.commentsOf(id)
	return &p, nil
}

func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.titleTaken(post.Title, 0) {
		return repository.ErrDuplicateTitle
	}
	post.ID = s.id()
	stored := *post
	stored.Author, stored.Comments = models.User{}, nil
	s.posts[post.ID] = stored
	return nil
}

func (s *Store) UpdatePost(_ context.Context, id uint, changes repository.PostChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.titleTaken(changes.Title, id) {
		return repository.ErrDuplicateTitle
	}
	p.Title, p.Subtitle, p.ImgURL, p.Body = changes.Title, changes.Subtitle, changes.ImgURL, changes.Body
	s.posts[id] = p
	return nil
}

func (s *Store) DeletePost(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return repository.ErrNotFound
	}
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return repository.ErrNotFound
	}
	comment.ID = s.id()
	comment.CreatedAt = time.Now()
	stored := *comment
	stored.Author = models.User{}
	s.comments[comment.ID] = stored
	return nil
}

// CommentCount returns the number of stored comments across all posts.
func (s *Store) CommentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

func (s *Store) commentsOf(postID uint) []models.Comment {
	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			c.Author = s.users[c.AuthorID]
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) titleTaken(title string, except uint) bool {
	for id, p := range s.posts {
		if id != except && p.Title == title {
			return true
		}
	}
	return false
}

var _ repository.Store = (*Store)(nil)
