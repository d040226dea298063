package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bloghub/forms"
	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/repository"
	"github.com/cppla/bloghub/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	view     *View
	users    repository.UserStore
	sessions *middleware.Sessions
}

// NewAuthController creates an AuthController.
func NewAuthController(view *View, users repository.UserStore, sessions *middleware.Sessions) *AuthController {
	return &AuthController{view: view, users: users, sessions: sessions}
}

// RegisterForm shows the sign-up page.
func (a *AuthController) RegisterForm(ctx *gin.Context) {
	a.renderRegister(ctx, &forms.RegisterForm{}, nil)
}

// Register creates an account and logs it in. Known emails are sent to the login page instead.
func (a *AuthController) Register(ctx *gin.Context) {
	var form forms.RegisterForm
	if errs := forms.Bind(ctx, &form); len(errs) > 0 {
		a.renderRegister(ctx, &form, errs)
		return
	}

	_, err := a.users.UserByEmail(ctx.Request.Context(), form.Email)
	switch {
	case err == nil:
		a.alreadyRegistered(ctx)
		return
	case !errors.Is(err, repository.ErrNotFound):
		a.view.ServerError(ctx, err)
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		a.view.ServerError(ctx, err)
		return
	}

	user := models.User{
		Email:        form.Email,
		Name:         form.Name,
		PasswordHash: hash,
	}
	if err := a.users.CreateUser(ctx.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			a.alreadyRegistered(ctx)
			return
		}
		a.view.ServerError(ctx, err)
		return
	}
	utils.Logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))

	if err := a.sessions.Login(ctx, &user); err != nil {
		a.view.ServerError(ctx, err)
		return
	}
	middleware.AddFlash(ctx, middleware.FlashSuccess, "Registered and Logged In")
	redirect(ctx, "/")
}

func (a *AuthController) alreadyRegistered(ctx *gin.Context) {
	middleware.AddFlash(ctx, middleware.FlashWarning, "User already present. Please Login instead")
	redirect(ctx, "/login")
}

func (a *AuthController) renderRegister(ctx *gin.Context, form *forms.RegisterForm, errs forms.Errors) {
	form.Password = ""
	a.view.Render(ctx, http.StatusOK, "register.html", "Register", gin.H{"Form": form, "Errors": errs})
}

// LoginForm shows the login page.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	a.renderLogin(ctx, &forms.LoginForm{}, nil)
}

// Login verifies the credentials and binds the session. Unknown emails and wrong
// passwords get different messages and different destinations.
func (a *AuthController) Login(ctx *gin.Context) {
	var form forms.LoginForm
	if errs := forms.Bind(ctx, &form); len(errs) > 0 {
		a.renderLogin(ctx, &form, errs)
		return
	}

	user, err := a.users.UserByEmail(ctx.Request.Context(), form.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.AddFlash(ctx, middleware.FlashWarning, "User data not available, Please Register first")
			redirect(ctx, "/register")
			return
		}
		a.view.ServerError(ctx, err)
		return
	}

	// emails are case-sensitive even where the database collation is not
	if user.Email != form.Email || !utils.CheckPassword(user.PasswordHash, form.Password) {
		middleware.AddFlash(ctx, middleware.FlashDanger, "Invalid Email or Password")
		redirect(ctx, "/login")
		return
	}

	if err := a.sessions.Login(ctx, user); err != nil {
		a.view.ServerError(ctx, err)
		return
	}
	middleware.AddFlash(ctx, middleware.FlashSuccess, "You're Successfully Logged In")
	redirect(ctx, "/")
}

func (a *AuthController) renderLogin(ctx *gin.Context, form *forms.LoginForm, errs forms.Errors) {
	form.Password = ""
	a.view.Render(ctx, http.StatusOK, "login.html", "Login", gin.H{"Form": form, "Errors": errs})
}

// Logout ends the session.
func (a *AuthController) Logout(ctx *gin.Context) {
	if err := a.sessions.Logout(ctx); err != nil {
		// the cookie is gone either way; the token simply stays valid until it expires
		utils.Logger.Warn("session revocation failed", zap.Error(err))
	}
	middleware.AddFlash(ctx, middleware.FlashInfo, "Successfully Logged Out")
	redirect(ctx, "/")
}
