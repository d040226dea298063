package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/utils"
)

// View renders the HTML pages shared by all controllers.
type View struct {
	Site string
}

// NewView creates a View for a site called site.
func NewView(site string) *View {
	return &View{Site: site}
}

// Render executes the page template name with data plus the fields every layout needs.
func (v *View) Render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	user := middleware.CurrentUser(c)
	data["Site"] = v.Site
	data["Title"] = title
	data["CurrentUser"] = user
	data["LoggedIn"] = user != nil
	data["IsAdmin"] = user.IsAdmin()
	data["Year"] = time.Now().Year()
	data["CSRFToken"] = middleware.CSRFToken(c)
	data["Flashes"] = middleware.PopFlashes(c)
	c.HTML(status, name, data)
}

func (v *View) renderError(c *gin.Context, status int, message string) {
	v.Render(c, status, "error.html", http.StatusText(status), gin.H{
		"Code":    status,
		"Message": message,
	})
}

// NotFound renders the 404 page.
func (v *View) NotFound(c *gin.Context) {
	v.renderError(c, http.StatusNotFound, "The page you are looking for does not exist.")
}

// Forbidden renders the 403 page.
func (v *View) Forbidden(c *gin.Context) {
	v.renderError(c, http.StatusForbidden, "You are not allowed to do that.")
}

// TooManyRequests renders the 429 page.
func (v *View) TooManyRequests(c *gin.Context) {
	v.renderError(c, http.StatusTooManyRequests, "Too many attempts, please wait a moment and try again.")
}

// ServerError logs err and renders the 500 page.
func (v *View) ServerError(c *gin.Context, err error) {
	if err != nil {
		utils.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	v.renderError(c, http.StatusInternalServerError, "Something went wrong on our side.")
}

// InternalError is the panic fallback; the recovery middleware has already logged the panic.
func (v *View) InternalError(c *gin.Context) {
	v.ServerError(c, nil)
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
