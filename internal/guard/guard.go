package guard

import (
	"context"
	"log"
	"strings"

	"github.com/fitpulse/fitpulse-go/internal/client"
	"github.com/fitpulse/fitpulse-go/internal/session"
)

// Decision is the outcome of evaluating a navigation intent. A non-empty
// RedirectTo overrides the requested path.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard enforces route access on every navigation: auth pages reject
// authenticated sessions, protected routes reject unauthenticated ones, and
// healthy authenticated sessions get their token refreshed and profile
// loaded opportunistically.
type Guard struct {
	session         *session.Session
	client          *client.Client
	protectedRoutes []string
	authPages       []string
}

// NewGuard creates a Guard over literal route lists
func NewGuard(sess *session.Session, cl *client.Client, protectedRoutes, authPages []string) *Guard {
	return &Guard{
		session:         sess,
		client:          cl,
		protectedRoutes: protectedRoutes,
		authPages:       authPages,
	}
}

// Evaluate decides whether navigation to path may proceed
func (g *Guard) Evaluate(ctx context.Context, path string) Decision {
	// Hydrate the session if no token has been loaded yet this process
	if g.session.AccessToken() == "" {
		if err := g.session.Init(ctx); err != nil {
			log.Printf("Guard: failed to initialize session: %v", err)
		}
	}

	if g.isAuthPage(path) {
		// Already authenticated users have no business on auth pages
		if g.session.IsAuthenticated() {
			return Decision{RedirectTo: "/"}
		}
		return Decision{Allow: true}
	}

	if g.requiresAuth(path) && !g.session.IsAuthenticated() {
		return Decision{RedirectTo: "/auth/login"}
	}

	if g.session.IsAuthenticated() {
		if err := g.ensureFreshSession(ctx); err != nil {
			log.Printf("Guard: auth check failed for %s: %v", path, err)
			if err := g.session.Logout(ctx); err != nil {
				log.Printf("Guard: logout failed: %v", err)
			}
			return Decision{RedirectTo: "/"}
		}
	}

	return Decision{Allow: true}
}

// ensureFreshSession refreshes a near-expired token and loads the profile
// when it is missing
func (g *Guard) ensureFreshSession(ctx context.Context) error {
	if g.session.WillExpireSoon() {
		if _, err := g.client.Refresh(ctx); err != nil {
			return err
		}
	}
	if g.session.User() == nil {
		if _, err := g.client.FetchUser(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *Guard) requiresAuth(path string) bool {
	for _, route := range g.protectedRoutes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) isAuthPage(path string) bool {
	for _, page := range g.authPages {
		if path == page {
			return true
		}
	}
	return false
}
