package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Flash categories, matching the alert styles in the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

const (
	flashCookie     = "flash"
	contextFlashKey = "flash_state"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// Flashes keeps messages in an HMAC-signed cookie between a redirect and the next render.
type Flashes struct {
	secret []byte
	secure bool
}

type flashState struct {
	store   *Flashes
	pending []Flash
}

// NewFlashes creates the flash store.
func NewFlashes(secret string, secure bool) *Flashes {
	return &Flashes{secret: []byte(secret), secure: secure}
}

// Load reads flashes left by the previous response. Tampered cookies are ignored.
func (f *Flashes) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &flashState{store: f}
		if raw, err := c.Cookie(flashCookie); err == nil && raw != "" {
			st.pending = f.decode(raw)
		}
		c.Set(contextFlashKey, st)
		c.Next()
	}
}

// AddFlash queues a message for the next rendered page, surviving a redirect.
func AddFlash(c *gin.Context, category, message string) {
	st := state(c)
	if st == nil {
		return
	}
	st.pending = append(st.pending, Flash{Category: category, Message: message})
	st.store.write(c, st.store.encode(st.pending), 0)
}

// PopFlashes returns every queued message and forgets them.
func PopFlashes(c *gin.Context) []Flash {
	st := state(c)
	if st == nil || len(st.pending) == 0 {
		return nil
	}
	out := st.pending
	st.pending = nil
	st.store.write(c, "", -1)
	return out
}

func state(c *gin.Context) *flashState {
	if v, ok := c.Get(contextFlashKey); ok {
		return v.(*flashState)
	}
	return nil
}

func (f *Flashes) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, maxAge, "/", "", f.secure, true)
}

// encode produces base64(json).base64(hmac).
func (f *Flashes) encode(list []Flash) string {
	payload, _ := json.Marshal(list)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(f.sign(payload))
}

func (f *Flashes) decode(raw string) []Flash {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || !hmac.Equal(sig, f.sign(payload)) {
		return nil
	}
	var list []Flash
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil
	}
	return list
}

func (f *Flashes) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte("flash:"))
	mac.Write(payload)
	return mac.Sum(nil)
}
