package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bloghub/forms"
	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/repository"
	"github.com/cppla/bloghub/utils"
)

const msgDuplicateTitle = "A post with this title already exists"

// PostController serves the post list, single posts with comments, and the admin post editor.
type PostController struct {
	view  *View
	store repository.Store
	now   func() time.Time
}

// NewPostController creates a PostController.
func NewPostController(view *View, store repository.Store) *PostController {
	return &PostController{view: view, store: store, now: time.Now}
}

// ListPosts renders the home page.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.store.ListPosts(ctx.Request.Context())
	if err != nil {
		p.view.ServerError(ctx, err)
		return
	}
	p.view.Render(ctx, http.StatusOK, "index.html", "Home", gin.H{"Posts": posts})
}

// ShowPost renders a post with its comments.
func (p *PostController) ShowPost(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	p.renderPost(ctx, post, &forms.CommentForm{}, nil)
}

// CreateComment adds a comment by the current user. Anonymous visitors are sent to log in
// before the form is even looked at.
func (p *PostController) CreateComment(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	user := middleware.CurrentUser(ctx)
	if user == nil {
		middleware.AddFlash(ctx, middleware.FlashWarning, "You need to login or register to comment")
		redirect(ctx, "/login")
		return
	}

	var form forms.CommentForm
	if errs := forms.Bind(ctx, &form); len(errs) > 0 {
		p.renderPost(ctx, post, &form, errs)
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		Text:     form.Body,
	}
	if err := p.store.CreateComment(ctx.Request.Context(), &comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.view.NotFound(ctx)
			return
		}
		p.view.ServerError(ctx, err)
		return
	}
	redirect(ctx, postURL(post.ID))
}

func (p *PostController) renderPost(ctx *gin.Context, post *models.Post, form *forms.CommentForm, errs forms.Errors) {
	p.view.Render(ctx, http.StatusOK, "post.html", post.Title, gin.H{
		"Post":   post,
		"Form":   form,
		"Errors": errs,
	})
}

// NewPostForm shows the empty editor.
func (p *PostController) NewPostForm(ctx *gin.Context) {
	p.renderEditor(ctx, 0, &forms.PostForm{}, nil)
}

// CreatePost stores a new post authored by the current admin and dated today.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var form forms.PostForm
	if errs := forms.Bind(ctx, &form); len(errs) > 0 {
		p.renderEditor(ctx, 0, &form, errs)
		return
	}

	author := middleware.CurrentUser(ctx)
	post := models.Post{
		AuthorID: author.ID,
		Title:    form.Title,
		Subtitle: form.Subtitle,
		ImgURL:   form.ImgURL,
		Body:     form.Body,
		Date:     p.now().Format(models.PostDateLayout),
	}
	if err := p.store.CreatePost(ctx.Request.Context(), &post); err != nil {
		if errors.Is(err, repository.ErrDuplicateTitle) {
			p.duplicateTitle(ctx, 0, &form)
			return
		}
		p.view.ServerError(ctx, err)
		return
	}
	utils.Logger.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", author.ID))
	redirect(ctx, "/")
}

// EditPostForm shows the editor filled with the stored post.
func (p *PostController) EditPostForm(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	p.renderEditor(ctx, post.ID, &forms.PostForm{
		Title:    post.Title,
		Subtitle: post.Subtitle,
		ImgURL:   post.ImgURL,
		Body:     post.Body,
	}, nil)
}

// UpdatePost changes title, subtitle, image and body. Author and date are kept.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		p.view.NotFound(ctx)
		return
	}
	var form forms.PostForm
	if errs := forms.Bind(ctx, &form); len(errs) > 0 {
		p.renderEditor(ctx, id, &form, errs)
		return
	}

	err := p.store.UpdatePost(ctx.Request.Context(), id, repository.PostChanges{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		ImgURL:   form.ImgURL,
		Body:     form.Body,
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p.view.NotFound(ctx)
	case errors.Is(err, repository.ErrDuplicateTitle):
		p.duplicateTitle(ctx, id, &form)
	case err != nil:
		p.view.ServerError(ctx, err)
	default:
		redirect(ctx, postURL(id))
	}
}

// DeletePost removes a post and its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		p.view.NotFound(ctx)
		return
	}
	if err := p.store.DeletePost(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.view.NotFound(ctx)
			return
		}
		p.view.ServerError(ctx, err)
		return
	}
	utils.Logger.Info("post deleted", zap.Uint("post_id", id), zap.Uint("by", middleware.CurrentUser(ctx).ID))
	redirect(ctx, "/")
}

func (p *PostController) duplicateTitle(ctx *gin.Context, id uint, form *forms.PostForm) {
	middleware.AddFlash(ctx, middleware.FlashWarning, msgDuplicateTitle)
	p.renderEditor(ctx, id, form, forms.Errors{"title": msgDuplicateTitle + "."})
}

// renderEditor shows the create form when id is 0 and the edit form otherwise.
func (p *PostController) renderEditor(ctx *gin.Context, id uint, form *forms.PostForm, errs forms.Errors) {
	title, action := "New Post", "/new-post"
	if id != 0 {
		title, action = "Edit Post", fmt.Sprintf("/edit-post/%d", id)
	}
	p.view.Render(ctx, http.StatusOK, "make-post.html", title, gin.H{
		"IsEdit": id != 0,
		"Action": action,
		"Form":   form,
		"Errors": errs,
	})
}

// loadPost resolves the :id parameter, rendering 404 when it names no post.
func (p *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parseID(ctx, "id")
	if !ok {
		p.view.NotFound(ctx)
		return nil, false
	}
	post, err := p.store.PostByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.view.NotFound(ctx)
			return nil, false
		}
		p.view.ServerError(ctx, err)
		return nil, false
	}
	return post, true
}

func postURL(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}
