package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/mailer"
	"github.com/cppla/bloghub/models"
	memstore "github.com/cppla/bloghub/repository/mock"
	"github.com/cppla/bloghub/utils"
)

const (
	testPassword  = "hunter2"
	// hunter2Digest is the stored form of testPassword.
	hunter2Digest = "pbkdf2:sha256:1000$Ab3dE6gH$9ff9843664727c8abaf6f83798fb9af284d3348707f4961e0b20525293177798"
	adminEmail    = "admin@example.com"
	readerEmail   = "reader@example.com"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]+)"`)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg *mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type testApp struct {
	router http.Handler
	store  *memstore.Store
	sender *MockSender
	logs   *observer.ObservedLogs
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		SecretKey:          "test-secret",
		SiteTitle:          "BlogHub",
		GinMode:            "test",
		RateLimitPerMinute: 600,
		SessionTTLHours:    1,
	}
}

func newTestApp(t *testing.T, cfg config.AppConfig) *testApp {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	store := memstore.NewStore(adminEmail)
	sender := &MockSender{}
	app := &testApp{
		store:  store,
		sender: sender,
		logs:   logs,
		router: SetupRouter(cfg, Deps{
			Store:     store,
			Blacklist: utils.NewTokenBlacklist(nil),
			Notifier:  mailer.NewNotifier(sender, "owner@example.com", 0, log),
		}),
	}
	return app
}

// seedUser stores an account whose password is testPassword.
func (a *testApp) seedUser(t *testing.T, email, name string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: name, PasswordHash: hunter2Digest}
	require.NoError(t, a.store.CreateUser(context.Background(), u))
	return u
}

// seedPost stores a post authored by author.
func (a *testApp) seedPost(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID: author.ID,
		Title:    title,
		Subtitle: "A subtitle",
		Date:     "October 15, 2026",
		Body:     "<p>Body of " + title + "</p>",
		ImgURL:   "https://example.com/cover.jpg",
	}
	require.NoError(t, a.store.CreatePost(context.Background(), p))
	return p
}

// browser keeps cookies between requests the way a real client would.
type browser struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]string
	csrf    string
}

func (a *testApp) newBrowser(t *testing.T) *browser {
	t.Helper()
	b := &browser{t: t, router: a.router, cookies: map[string]string{}}
	w := b.get("/login")
	require.Equal(t, http.StatusOK, w.Code)
	m := csrfPattern.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2, "login page carries a csrf token")
	b.csrf = m[1]
	return b
}

func (b *browser) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil, "")
}

// post submits a copy of form carrying this browser's csrf token unless form sets one.
func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	values := url.Values{}
	for k, v := range form {
		values[k] = append([]string(nil), v...)
	}
	if values.Get("csrf_token") == "" {
		values.Set("csrf_token", b.csrf)
	}
	return b.do(http.MethodPost, path, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

// follow asserts a 302 and loads its target.
func (b *browser) follow(w *httptest.ResponseRecorder, location string) *httptest.ResponseRecorder {
	b.t.Helper()
	require.Equal(b.t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(b.t, location, w.Header().Get("Location"))
	return b.get(location)
}

func (b *browser) login(email string) {
	b.t.Helper()
	w := b.post("/login", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(b.t, http.StatusFound, w.Code)
	require.Equal(b.t, "/", w.Header().Get("Location"))
}
