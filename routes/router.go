package routes

import (
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/controllers"
	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/repository"
	"github.com/cppla/bloghub/utils"
	"github.com/cppla/bloghub/web"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store     repository.Store
	Blacklist *utils.TokenBlacklist
	Notifier  controllers.ContactNotifier
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	view := controllers.NewView(cfg.SiteTitle)

	r := gin.New()
	// Access log goes to its own rolling file; without one, the application logger is used.
	accessLog := utils.Logger
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
		accessLog = gl
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false, view.InternalError))

	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"safe":     func(s string) template.HTML { return template.HTML(s) },
		"gravatar": utils.Gravatar,
	}).ParseFS(web.FS, "templates/*.html")))

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessions := middleware.NewSessions(deps.Store, deps.Blacklist, cfg.SecretKey, cfg.SessionTTL(), cfg.CookieSecure)
	r.Use(middleware.NewCSRF(cfg.SecretKey, cfg.CookieSecure).Middleware())
	r.Use(middleware.NewFlashes(cfg.SecretKey, cfg.CookieSecure).Load())
	r.Use(sessions.Identify())

	authController := controllers.NewAuthController(view, deps.Store, sessions)
	postController := controllers.NewPostController(view, deps.Store)
	pageController := controllers.NewPageController(view, deps.Notifier)

	throttle := middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware(view.TooManyRequests)
	adminOnly := middleware.AdminOnly(view.Forbidden)

	r.GET("/", postController.ListPosts)
	r.GET("/post/:id", postController.ShowPost)
	r.POST("/post/:id", postController.CreateComment)

	r.GET("/register", authController.RegisterForm)
	r.POST("/register", throttle, authController.Register)
	r.GET("/login", authController.LoginForm)
	r.POST("/login", throttle, authController.Login)
	r.GET("/logout", middleware.AuthRequired(), authController.Logout)

	admin := r.Group("", adminOnly)
	admin.GET("/new-post", postController.NewPostForm)
	admin.POST("/new-post", postController.CreatePost)
	admin.GET("/edit-post/:id", postController.EditPostForm)
	admin.POST("/edit-post/:id", postController.UpdatePost)
	admin.GET("/delete/:id", postController.DeletePost)

	r.GET("/about", pageController.About)
	r.GET("/contact", pageController.ContactForm)
	r.POST("/contact", throttle, pageController.Contact)

	r.NoRoute(view.NotFound)

	return r
}
