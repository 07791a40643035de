package security

import (
	"encoding/json"
	"errors"
	"impactlab/internal/domain/model"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "user"
	SessionTTL        = 7 * 24 * time.Hour

	sessionClaim = "user"
)

var errSessionClaim = errors.New("user claim is missing or not a string")

// SessionCodec turns a Session into the `user` cookie and back.
//
// The cookie value is a compact HS256 JWS whose "user" claim holds the
// JSON-encoded session, so the payload stays readable but cannot be altered
// or forged without the signing key.
type SessionCodec struct {
	tokenAuth *jwtauth.JWTAuth
	secure    bool
	now       func() time.Time
}

func NewSessionCodec(secret []byte, secure bool) *SessionCodec {
	return &SessionCodec{
		tokenAuth: jwtauth.New("HS256", secret, nil),
		secure:    secure,
		now:       time.Now,
	}
}

// Encode serializes sess into a signed cookie value.
func (c *SessionCodec) Encode(sess *model.Session) (string, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	now := c.now()
	claims := jwt.MapClaims{
		sessionClaim: string(payload),
		"sub":        sess.ID,
		"iat":        now.Unix(),
		"exp":        now.Add(SessionTTL).Unix(),
	}
	_, tokenString, err := c.tokenAuth.Encode(claims)
	return tokenString, err
}

// Decode parses a cookie value. Any failure (bad signature, expiry, broken
// JSON) is reported as "no session".
func (c *SessionCodec) Decode(value string) (*model.Session, bool) {
	if value == "" {
		return nil, false
	}
	token, err := jwtauth.VerifyToken(c.tokenAuth, value)
	if err != nil {
		return nil, false
	}
	raw, ok := token.Get(sessionClaim)
	if !ok {
		return nil, false
	}
	sess, err := sessionFromClaim(raw)
	if err != nil {
		return nil, false
	}
	return sess, true
}

func sessionFromClaim(raw interface{}) (*model.Session, error) {
	payload, ok := raw.(string)
	if !ok {
		return nil, errSessionClaim
	}
	var sess model.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, err
	}
	if sess.ID == "" {
		return nil, errSessionClaim
	}
	return &sess, nil
}

// Cookie builds the Set-Cookie value that establishes sess.
func (c *SessionCodec) Cookie(sess *model.Session) (*http.Cookie, error) {
	value, err := c.Encode(sess)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		Expires:  c.now().Add(SessionTTL),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// ExpiredCookie deletes the session cookie on the client.
func (c *SessionCodec) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// FromRequest recovers the session carried by r, or nil.
func (c *SessionCodec) FromRequest(r *http.Request) *model.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}
	sess, ok := c.Decode(cookie.Value)
	if !ok {
		return nil
	}
	return sess
}
