package middleware

import (
	"net/http"

	"github.com/vaughan-dsouza/clubhouse/internal/models"
)

// Capability is what a route demands from the current user.
type Capability int

const (
	Public Capability = iota
	Authenticated
	Member
	Admin
)

func (c Capability) String() string {
	switch c {
	case Authenticated:
		return "authenticated"
	case Member:
		return "member"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Policy maps "METHOD /path" to the capability it requires. Routes not in
// the table are public.
type Policy map[string]Capability

// DefaultPolicy is the board's authorization table.
func DefaultPolicy() Policy {
	return Policy{
		"GET /logout":    Authenticated,
		"GET /new":       Authenticated,
		"POST /messages": Authenticated,
		"GET /member":    Authenticated,
		"POST /member":   Authenticated,
	}
}

func (p Policy) Required(method, path string) Capability {
	return p[method+" "+path]
}

// Allows reports whether user (ok=false for anonymous) holds c. Admins hold
// every capability.
func Allows(user models.User, ok bool, c Capability) bool {
	switch c {
	case Public:
		return true
	case Authenticated:
		return ok
	case Member:
		return ok && (user.IsMember || user.IsAdmin)
	case Admin:
		return ok && user.IsAdmin
	default:
		return false
	}
}

// Enforce applies p to every request. Requests lacking the capability are
// redirected home rather than rejected.
func Enforce(p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			need := p.Required(r.Method, r.URL.Path)
			user, ok := CurrentUser(r.Context())
			if !Allows(user, ok, need) {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
