package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "smartmoney_session"

// Cookies issues and verifies signed session cookies of the form
// <uuid>.<base64url HMAC-SHA256(uuid)>.
type Cookies struct {
	name   string
	secret []byte
	secure bool
}

// NewCookies creates a codec. An empty secret is replaced by a random one,
// which invalidates every session on restart.
func NewCookies(name, secret string) *Cookies {
	if name == "" {
		name = DefaultCookieName
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &Cookies{name: name, secret: key}
}

// SetSecure marks issued cookies Secure, for deployments behind TLS.
func (c *Cookies) SetSecure(secure bool) {
	c.secure = secure
}

func (c *Cookies) sign(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Encode returns the cookie value for id.
func (c *Cookies) Encode(id string) string {
	return id + "." + c.sign(id)
}

// Decode returns the session id carried by value if its signature holds.
func (c *Cookies) Decode(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	want := c.sign(id)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return "", false
	}
	return id, true
}

// Session returns the caller's session id. A missing or tampered cookie
// gets a fresh id, set on the response.
func (c *Cookies) Session(w http.ResponseWriter, r *http.Request) (id string, issued bool) {
	if ck, err := r.Cookie(c.name); err == nil {
		if id, ok := c.Decode(ck.Value); ok {
			return id, false
		}
	}
	id = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    c.Encode(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}
