package middleware

import (
	"context"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"net/http"
)

type contextKey string

const sessionCtxKey contextKey = "session"

// SessionReader recovers the session carried by a request's cookie.
type SessionReader interface {
	CurrentSession(r *http.Request) *model.Session
}

// Session decodes the `user` cookie once per request and stores the result
// in the request context. Requests without a valid cookie carry a nil session.
func Session(reader SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := reader.CurrentSession(r)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, sess)
}

// SessionFromContext returns the request's session, or nil when anonymous.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionCtxKey).(*model.Session)
	return sess
}

// Authenticator rejects anonymous API requests.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !sess.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin is the page flavour of Authenticator: anonymous visitors are
// sent to the login form.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			http.Redirect(w, r, model.RouteLogin.String(), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin is the page flavour of AdminOnly. Signed-in non-admins land on
// the room catalog.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		switch {
		case sess == nil:
			http.Redirect(w, r, model.RouteLogin.String(), http.StatusSeeOther)
		case !sess.IsAdmin():
			http.Redirect(w, r, model.RouteRooms.String(), http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
