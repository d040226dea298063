package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/bloghub/mailer"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/repository"
	memstore "github.com/cppla/bloghub/repository/mock"
	"github.com/cppla/bloghub/utils"
)

func postForm(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {"Notes from the road"},
		"img_url":  {"https://example.com/road.jpg"},
		"body":     {"<p>It was a long drive.</p><script>alert(1)</script>"},
	}
}

func TestHealthAndStatic(t *testing.T) {
	app := newTestApp(t, testConfig())
	b := &browser{t: t, router: app.router, cookies: map[string]string{}}

	w := b.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = b.get("/static/css/styles.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".navbar")
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.seedUser(t, adminEmail, "Angela")
	app.seedPost(t, admin, "First Light")
	app.seedPost(t, admin, "Second Wind")
	b := app.newBrowser(t)

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{"First Light", "Second Wind", "Posted by Angela", "Login", "Register"}},
		{"/about", []string{"About Me"}},
		{"/contact", []string{"Contact Me", `name="phone"`}},
		{"/register", []string{"Sign Me Up!"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := b.get(tt.path)
			require.Equal(t, http.StatusOK, w.Code)
			for _, s := range tt.want {
				assert.Contains(t, w.Body.String(), s)
			}
			assert.NotContains(t, w.Body.String(), "New Post")
		})
	}
}

func TestHomeListsNewestFirst(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.seedUser(t, adminEmail, "Angela")
	app.seedPost(t, admin, "Older")
	app.seedPost(t, admin, "Newer")

	body := app.newBrowser(t).get("/").Body.String()
	assert.Less(t, strings.Index(body, "Newer"), strings.Index(body, "Older"))
}

func TestRegisterLogoutLogin(t *testing.T) {
	app := newTestApp(t, testConfig())
	b := app.newBrowser(t)

	w := b.post("/register", url.Values{
		"email":    {"new@example.com"},
		"password": {"s3cret pass"},
		"name":     {"Newton"},
	})
	page := b.follow(w, "/")
	assert.Contains(t, page.Body.String(), "Registered and Logged In")
	assert.Contains(t, page.Body.String(), "Log Out")

	stored, err := app.store.UserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Newton", stored.Name)
	assert.False(t, stored.IsAdmin())
	assert.NotEqual(t, "s3cret pass", stored.PasswordHash)

	page = b.follow(b.get("/logout"), "/")
	assert.Contains(t, page.Body.String(), "Successfully Logged Out")
	assert.Contains(t, page.Body.String(), "Login")
	assert.NotContains(t, page.Body.String(), "Log Out")

	page = b.follow(b.post("/login", url.Values{"email": {"new@example.com"}, "password": {"wrong"}}), "/login")
	assert.Contains(t, page.Body.String(), "Invalid Email or Password")

	page = b.follow(b.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"x"}}), "/register")
	assert.Contains(t, page.Body.String(), "User data not available, Please Register first")

	page = b.follow(b.post("/login", url.Values{"email": {"new@example.com"}, "password": {"s3cret pass"}}), "/")
	assert.Contains(t, page.Body.String(), "Successfully Logged In")
	assert.Contains(t, page.Body.String(), "Log Out")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.seedUser(t, readerEmail, "Original")
	b := app.newBrowser(t)

	w := b.post("/register", url.Values{
		"email":    {readerEmail},
		"password": {"another"},
		"name":     {"Impostor"},
	})
	page := b.follow(w, "/login")
	assert.Contains(t, page.Body.String(), "User already present. Please Login instead")
	assert.NotContains(t, page.Body.String(), "Log Out")

	stored, err := app.store.UserByEmail(context.Background(), readerEmail)
	require.NoError(t, err)
	assert.Equal(t, "Original", stored.Name)
	assert.Equal(t, hunter2Digest, stored.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, testConfig())
	b := app.newBrowser(t)

	w := b.post("/register", url.Values{"email": {"  "}, "password": {""}, "name": {"Nia"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter your email.")
	assert.Contains(t, w.Body.String(), "Please enter your password.")
	assert.Contains(t, w.Body.String(), `value="Nia"`)

	_, err := app.store.UserByID(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLogoutRequiresLogin(t *testing.T) {
	app := newTestApp(t, testConfig())
	b := app.newBrowser(t)

	page := b.follow(b.get("/logout"), "/login")
	assert.Contains(t, page.Body.String(), "Please log in to access this page.")
}

func TestLoggedOutTokenStaysRevoked(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.seedUser(t, readerEmail, "Rita")
	b := app.newBrowser(t)
	b.login(readerEmail)
	stolen := b.cookies["session"]
	require.NotEmpty(t, stolen)

	b.follow(b.get("/logout"), "/")

	b.cookies["session"] = stolen
	page := b.get("/")
	assert.NotContains(t, page.Body.String(), "Log Out")
}

func TestMissingCSRFTokenIsRejected(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.seedUser(t, readerEmail, "Rita")
	b := app.newBrowser(t)

	w := b.post("/login", url.Values{
		"email":      {readerEmail},
		"password":   {testPassword},
		"csrf_token": {"forged"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The form has expired, please submit it again.")
	_, loggedIn := b.cookies["session"]
	assert.False(t, loggedIn)
}

func TestAdminGate(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.seedUser(t, adminEmail, "Angela")
	app.seedUser(t, readerEmail, "Rita")
	post := app.seedPost(t, admin, "Guarded")

	anonymous := app.newBrowser(t)
	reader := app.newBrowser(t)
	reader.login(readerEmail)

	for name, b := range map[string]*browser{"anonymous": anonymous, "reader": reader} {
		t.Run(name, func(t *testing.T) {
			requests := []struct {
				method, path string
			}{
				{http.MethodGet, "/new-post"},
				{http.MethodPost, "/new-post"},
				{http.MethodGet, fmt.Sprintf("/edit-post/%d", post.ID)},
				{http.MethodPost, fmt.Sprintf("/edit-post/%d", post.ID)},
				{http.MethodGet, fmt.Sprintf("/delete/%d", post.ID)},
				{http.MethodGet, "/delete/999"},
			}
			for _, r := range requests {
				var code int
				if r.method == http.MethodGet {
					code = b.get(r.path).Code
				} else {
					code = b.post(r.path, postForm("Hijacked")).Code
				}
				assert.Equal(t, http.StatusForbidden, code, "%s %s", r.method, r.path)
			}

			stored, err := app.store.PostByID(context.Background(), post.ID)
			require.NoError(t, err)
			assert.Equal(t, "Guarded", stored.Title)
			posts, err := app.store.ListPosts(context.Background())
			require.NoError(t, err)
			assert.Len(t, posts, 1)
		})
	}
}

func TestUnknownPostIsNotFound(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.seedUser(t, adminEmail, "Angela")
	b := app.newBrowser(t)

	assert.Equal(t, http.StatusNotFound, b.get("/post/999").Code)
	assert.Equal(t, http.StatusNotFound, b.get("/post/abc").Code)
	assert.Equal(t, http.StatusNotFound, b.get("/no-such-page").Code)

	b.login(adminEmail)
	assert.Equal(t, http.StatusNotFound, b.get("/edit-post/999").Code)
	assert.Equal(t, http.StatusNotFound, b.post("/edit-post/999", postForm("Ghost")).Code)
	assert.Equal(t, http.StatusNotFound, b.get("/delete/999").Code)
}

func TestAnonymousCommentIsRejected(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.seedUser(t, adminEmail, "Angela")
	post := app.seedPost(t, admin, "Open Thread")
	b := app.newBrowser(t)

	w := b.post(fmt.Sprintf("/post/%d", post.ID), url.Values{"body": {"drive-by"}})
	page := b.follow(w, "/login")
	assert.Contains(t, page.Body.String(), "You need to login or register to comment")
	assert.Equal(t, 0, app.store.CommentCount())
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.seedUser(t, adminEmail, "Angela")
	app.seedUser(t, readerEmail, "Rita")

	admin := app.newBrowser(t)
	admin.login(adminEmail)
	assert.Contains(t, admin.get("/").Body.String(), "New Post")

	page := admin.follow(admin.post("/new-post", postForm("Road Trip")), "/")
	assert.Contains(t, page.Body.String(), "Road Trip")
	assert.Contains(t, page.Body.String(), "Posted by Angela")

	posts, err := app.store.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	created := posts[0]
	assert.Equal(t, "Angela", created.Author.Name)
	assert.NotContains(t, created.Body, "<script>")
	assert.NotEmpty(t, created.Date)
	postPath := fmt.Sprintf("/post/%d", created.ID)

	view := admin.get(postPath)
	require.Equal(t, http.StatusOK, view.Code)
	assert.Contains(t, view.Body.String(), "Road Trip")
	assert.Contains(t, view.Body.String(), "Notes from the road")
	assert.Contains(t, view.Body.String(), "It was a long drive.")
	assert.Contains(t, view.Body.String(), "Posted by Angela")
	assert.NotContains(t, view.Body.String(), "alert(1)")

	t.Run("duplicate title", func(t *testing.T) {
		w := admin.post("/new-post", postForm("Road Trip"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "A post with this title already exists")
		posts, err := app.store.ListPosts(context.Background())
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})

	t.Run("invalid image url", func(t *testing.T) {
		form := postForm("Broken Cover")
		form.Set("img_url", "not a url")
		w := admin.post("/new-post", form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid URL.")
	})

	t.Run("reader comments", func(t *testing.T) {
		reader := app.newBrowser(t)
		reader.login(readerEmail)
		page := reader.follow(reader.post(postPath, url.Values{"body": {"<b>Great</b> read!"}}), postPath)
		assert.Contains(t, page.Body.String(), "<b>Great</b> read!")
		assert.Contains(t, page.Body.String(), "Rita")
		assert.Contains(t, page.Body.String(), "https://www.gravatar.com/avatar/")
		assert.NotContains(t, page.Body.String(), "Edit Post")

		w := reader.post(postPath, url.Values{"body": {"   "}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Please write a comment.")
		assert.Equal(t, 1, app.store.CommentCount())
	})

	t.Run("edit keeps author and date", func(t *testing.T) {
		editPath := fmt.Sprintf("/edit-post/%d", created.ID)
		form := admin.get(editPath)
		require.Equal(t, http.StatusOK, form.Code)
		assert.Contains(t, form.Body.String(), `value="Road Trip"`)

		edit := postForm("Road Trip, Revisited")
		page := admin.follow(admin.post(editPath, edit), postPath)
		assert.Contains(t, page.Body.String(), "Road Trip, Revisited")

		stored, err := app.store.PostByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.AuthorID, stored.AuthorID)
		assert.Equal(t, created.Date, stored.Date)
	})

	t.Run("delete removes comments", func(t *testing.T) {
		admin.follow(admin.get(fmt.Sprintf("/delete/%d", created.ID)), "/")
		assert.Equal(t, http.StatusNotFound, admin.get(postPath).Code)
		assert.Equal(t, 0, app.store.CommentCount())
	})
}

func TestContact(t *testing.T) {
	form := url.Values{
		"name":    {"Casey"},
		"email":   {"casey@example.com"},
		"phone":   {"555-0100"},
		"message": {"Hello there"},
	}

	t.Run("delivered", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		app.sender.On("Send", mock.Anything, mock.MatchedBy(func(m *mailer.Message) bool {
			return m.Subject == "Feedback from Casey" &&
				m.ReplyTo == "casey@example.com" &&
				m.Text == "Name: Casey\nEmail Id: casey@example.com\nPhone no: 555-0100\nMessage:Hello there"
		})).Return(nil).Once()

		w := app.newBrowser(t).post("/contact", form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Successfully Sent Your Message")
		assert.Contains(t, w.Body.String(), "Thanks for reaching out")
		app.sender.AssertExpectations(t)
		assert.Zero(t, app.logs.Len())
	})

	t.Run("transport failure still confirms", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		app.sender.On("Send", mock.Anything, mock.Anything).
			Return(&textproto.Error{Code: 535, Msg: "authentication failed"}).Once()

		w := app.newBrowser(t).post("/contact", form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Something Went Wrong")
		assert.Contains(t, w.Body.String(), "Thanks for reaching out")
		require.Equal(t, 1, app.logs.Len())
		assert.Contains(t, app.logs.All()[0].Message, "authentication failed")
	})

	t.Run("network failure", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		app.sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("dial tcp: timeout")).Once()

		w := app.newBrowser(t).post("/contact", form)
		assert.Contains(t, w.Body.String(), "Something Went Wrong")
		assert.Equal(t, 1, app.logs.FilterMessage("contact mail: delivery failed").Len())
	})

	t.Run("invalid email is not sent", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		bad := url.Values{}
		for k, v := range form {
			bad[k] = v
		}
		bad.Set("email", "not-an-email")

		w := app.newBrowser(t).post("/contact", bad)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid email address.")
		assert.Contains(t, w.Body.String(), "Contact Me")
		app.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	app := newTestApp(t, cfg)
	b := app.newBrowser(t)

	creds := url.Values{"email": {"nobody@example.com"}, "password": {"x"}}
	assert.Equal(t, http.StatusFound, b.post("/login", creds).Code)
	w := b.post("/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many attempts")
}

func TestMarkupOnlyBodiesAreBlank(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.seedUser(t, adminEmail, "Angela")
	app.seedUser(t, readerEmail, "Rita")
	post := app.seedPost(t, admin, "Kept Intact")
	postPath := fmt.Sprintf("/post/%d", post.ID)

	t.Run("comment", func(t *testing.T) {
		reader := app.newBrowser(t)
		reader.login(readerEmail)
		w := reader.post(postPath, url.Values{"body": {"<script>alert(1)</script>"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Please write a comment.")
		assert.Equal(t, 0, app.store.CommentCount())
	})

	b := app.newBrowser(t)
	b.login(adminEmail)

	t.Run("new post", func(t *testing.T) {
		form := postForm("Empty Inside")
		form.Set("body", `<iframe src="//evil"></iframe>`)
		w := b.post("/new-post", form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Please write the post content.")
		posts, err := app.store.ListPosts(context.Background())
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})

	t.Run("edit post", func(t *testing.T) {
		form := postForm("Kept Intact")
		form.Set("body", "<script>wipe()</script>")
		w := b.post(fmt.Sprintf("/edit-post/%d", post.ID), form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Please write the post content.")
		stored, err := app.store.PostByID(context.Background(), post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Body, stored.Body)
	})
}

func TestContactFormIsNotMutatedBetweenSubmissions(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.sender.On("Send", mock.Anything, mock.Anything).Return(nil).Twice()
	form := url.Values{
		"name":    {"Casey"},
		"email":   {"casey@example.com"},
		"phone":   {"555-0100"},
		"message": {"Hello there"},
	}

	for i := 0; i < 2; i++ {
		w := app.newBrowser(t).post("/contact", form)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Successfully Sent Your Message")
	}
	assert.Empty(t, form.Get("csrf_token"))
	app.sender.AssertExpectations(t)
}

// foldingStore looks emails up case-insensitively, like a default MySQL collation.
type foldingStore struct {
	*memstore.Store
	users []*models.User
}

func (f *foldingStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestLoginRequiresExactEmail(t *testing.T) {
	app := newTestApp(t, testConfig())
	rita := app.seedUser(t, readerEmail, "Rita")
	store := &foldingStore{Store: app.store, users: []*models.User{rita}}
	app.router = SetupRouter(testConfig(), Deps{
		Store:     store,
		Blacklist: utils.NewTokenBlacklist(nil),
		Notifier:  mailer.NewNotifier(app.sender, "owner@example.com", 0, zap.NewNop()),
	})
	b := app.newBrowser(t)

	page := b.follow(b.post("/login", url.Values{"email": {"READER@example.com"}, "password": {testPassword}}), "/login")
	assert.Contains(t, page.Body.String(), "Invalid Email or Password")
	_, loggedIn := b.cookies["session"]
	assert.False(t, loggedIn)

	b.login(readerEmail)
	assert.NotEmpty(t, b.cookies["session"])
}
