// Package identity resolves the credential of a browser session into the
// signed-in identity and its profile, and announces identity changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"homedeck/internal/access"
	"homedeck/internal/auth"
	applog "homedeck/internal/log"
	"homedeck/models"
)

// ErrProfileUnavailable is returned when the profile can not be read or
// created. Callers fall back to the anonymous view.
var ErrProfileUnavailable = errors.New("identity: profile unavailable")

// DefaultRefreshGrace is how long a rotated refresh token keeps resolving to
// its replacement.
const DefaultRefreshGrace = 30 * time.Second

// Identity is the signed-in principal.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CredentialStore holds the credential of the current browser session.
type CredentialStore interface {
	Get(ctx context.Context) *auth.Credential
	Set(ctx context.Context, cred auth.Credential) error
	Clear(ctx context.Context) error
	ContextID(ctx context.Context) string
}

// Authenticator verifies and rotates tokens.
type Authenticator interface {
	Verify(accessToken string) (auth.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Credential, auth.User, error)
}

// ProfileSource fetches a profile, creating it when missing.
type ProfileSource interface {
	Ensure(ctx context.Context, id, email string) (*models.Profile, error)
}

type rotation struct {
	cred    auth.Credential
	user    auth.User
	expires time.Time
}

// Resolver turns the session credential into an Identity.
type Resolver struct {
	store    CredentialStore
	auth     Authenticator
	profiles ProfileSource
	bus      *Bus

	group singleflight.Group
	grace time.Duration
	now   func() time.Time

	mu      sync.Mutex
	rotated map[string]rotation
}

// NewResolver wires a Resolver. A nil bus gets a private one.
func NewResolver(store CredentialStore, authenticator Authenticator, profiles ProfileSource, bus *Bus) *Resolver {
	if bus == nil {
		bus = NewBus()
	}
	return &Resolver{
		store:    store,
		auth:     authenticator,
		profiles: profiles,
		bus:      bus,
		grace:    DefaultRefreshGrace,
		now:      time.Now,
		rotated:  make(map[string]rotation),
	}
}

// Bus returns the change bus.
func (r *Resolver) Bus() *Bus {
	return r.bus
}

// ContextKey is the browser-context key of ctx.
func (r *Resolver) ContextKey(ctx context.Context) string {
	return r.store.ContextID(ctx)
}

// CurrentIdentity returns the identity of the stored credential or nil. An
// expired access token is exchanged through the refresh token; when that
// fails the credential is cleared.
func (r *Resolver) CurrentIdentity(ctx context.Context) *Identity {
	cred := r.store.Get(ctx)
	if cred == nil {
		return nil
	}

	user, err := r.auth.Verify(cred.AccessToken)
	if err == nil {
		return r.resolved(ctx, user)
	}
	if !errors.Is(err, auth.ErrTokenExpired) {
		applog.Debug(ctx, "discarding unverifiable credential", "error", err)
		r.drop(ctx)
		return nil
	}

	next, user, err := r.refresh(ctx, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrUnavailable) {
			applog.Warn(ctx, "token refresh unavailable", "error", err)
			return nil
		}
		applog.Info(ctx, "token refresh failed", "error", err)
		r.drop(ctx)
		return nil
	}
	if err := r.store.Set(ctx, next); err != nil {
		applog.Warn(ctx, "store refreshed credential", "error", err)
	}
	return r.resolved(ctx, user)
}

func (r *Resolver) resolved(ctx context.Context, user auth.User) *Identity {
	id := &Identity{ID: user.ID, Email: user.Email}
	r.Notify(ctx, r.store.ContextID(ctx), id)
	return id
}

func (r *Resolver) drop(ctx context.Context) {
	key := r.store.ContextID(ctx)
	if err := r.store.Clear(ctx); err != nil {
		applog.Debug(ctx, "clear credential", "error", err)
	}
	r.Notify(ctx, key, nil)
}

// refresh rotates refreshToken once even when several requests of the same
// browser race on it. A token rotated within the grace period resolves to
// the credential it was exchanged for.
func (r *Resolver) refresh(ctx context.Context, refreshToken string) (auth.Credential, auth.User, error) {
	if cached, ok := r.recent(refreshToken); ok {
		return cached.cred, cached.user, nil
	}
	v, err, _ := r.group.Do(refreshToken, func() (any, error) {
		if cached, ok := r.recent(refreshToken); ok {
			return cached, nil
		}
		cred, user, err := r.auth.Refresh(context.WithoutCancel(ctx), refreshToken)
		if err != nil {
			return nil, err
		}
		rot := rotation{cred: *cred, user: user, expires: r.now().Add(r.grace)}
		r.mu.Lock()
		r.rotated[refreshToken] = rot
		r.mu.Unlock()
		return rot, nil
	})
	if err != nil {
		return auth.Credential{}, auth.User{}, err
	}
	rot := v.(rotation)
	return rot.cred, rot.user, nil
}

func (r *Resolver) recent(refreshToken string) (rotation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for token, rot := range r.rotated {
		if now.After(rot.expires) {
			delete(r.rotated, token)
		}
	}
	rot, ok := r.rotated[refreshToken]
	return rot, ok
}

// OnIdentityChange subscribes fn to identity changes.
func (r *Resolver) OnIdentityChange(fn Listener) func() {
	return r.bus.Subscribe(fn)
}

// Notify records next as the identity of the browser context key. Sign-in
// and sign-out call it directly.
func (r *Resolver) Notify(ctx context.Context, key string, next *Identity) bool {
	return r.bus.Publish(ctx, key, next)
}

// ProfileFor returns the profile of id, creating it with defaults when it
// does not exist yet.
func (r *Resolver) ProfileFor(ctx context.Context, id Identity) (*models.Profile, error) {
	profile, err := r.profiles.Ensure(ctx, id.ID, id.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	return profile, nil
}

// Principal returns the access-policy view of a profile.
func Principal(profile *models.Profile) access.Principal {
	if profile == nil {
		return access.Principal{}
	}
	return access.Principal{ID: profile.ID, Level: profile.AccessLevel}
}

type ctxKey struct{}

// Viewer is the resolved caller of a request. Profile is nil for anonymous
// callers and when the profile is unavailable.
type Viewer struct {
	Identity *Identity
	Profile  *models.Profile
}

// SignedIn reports whether the request carries an identity.
func (v Viewer) SignedIn() bool {
	return v.Identity != nil
}

// Principal returns the access-policy view of the viewer.
func (v Viewer) Principal() access.Principal {
	return Principal(v.Profile)
}

// WithViewer stores v in ctx.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns the viewer stored by Middleware.
func FromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(ctxKey{}).(Viewer)
	return v
}

// Middleware resolves the caller once per request. It must run inside the
// session middleware.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		var viewer Viewer
		if id := r.CurrentIdentity(ctx); id != nil {
			viewer.Identity = id
			profile, err := r.ProfileFor(ctx, *id)
			if err != nil {
				applog.Warn(ctx, "profile lookup failed", "identity", id.ID, "error", err)
			} else {
				viewer.Profile = profile
			}
		}
		next.ServeHTTP(w, req.WithContext(WithViewer(ctx, viewer)))
	})
}
