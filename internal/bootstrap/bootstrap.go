package bootstrap

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fitpulse/fitpulse-go/internal/client"
	"github.com/fitpulse/fitpulse-go/internal/session"
)

// refreshLead is how long before expiry the deferred refresh fires.
const refreshLead = time.Minute

// Initializer restores the session at process start: it hydrates state from
// the credential store, fetches the profile on a best-effort basis, and
// schedules a single refresh shortly before the token expires. The timer is
// retained and cancelled on logout; keeping the token fresh after that is
// the route guard's job, not this component's.
type Initializer struct {
	session *session.Session
	client  *client.Client

	mu    sync.Mutex
	timer *time.Timer
}

// NewInitializer creates an Initializer
func NewInitializer(sess *session.Session, cl *client.Client) *Initializer {
	return &Initializer{
		session: sess,
		client:  cl,
	}
}

// Run performs the one-time startup sequence
func (i *Initializer) Run(ctx context.Context) error {
	if err := i.session.Init(ctx); err != nil {
		return err
	}

	if i.session.IsAuthenticated() && i.session.User() == nil {
		// Best effort: navigation proceeds without a profile and the
		// route guard retries on the next transition
		if _, err := i.client.FetchUser(ctx); err != nil {
			log.Printf("Initializer: failed to fetch user: %v", err)
		}
	}

	if i.session.IsAuthenticated() {
		i.scheduleRefresh(ctx)
	}
	return nil
}

// Stop cancels the pending refresh, if any
func (i *Initializer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}

func (i *Initializer) scheduleRefresh(ctx context.Context) {
	expiresAt := i.session.ExpiresAt()
	if expiresAt.IsZero() {
		return
	}

	delay := time.Until(expiresAt) - refreshLead
	if delay > 0 {
		i.mu.Lock()
		i.timer = time.AfterFunc(delay, func() {
			if _, err := i.client.Refresh(context.Background()); err != nil {
				log.Printf("Initializer: scheduled refresh failed: %v", err)
			}
		})
		i.mu.Unlock()
		i.session.OnLogout(i.Stop)
		return
	}

	if i.session.WillExpireSoon() {
		if _, err := i.client.Refresh(ctx); err != nil {
			log.Printf("Initializer: immediate refresh failed: %v", err)
		}
	}
}
