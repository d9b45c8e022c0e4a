package prefs

import (
	"context"
	"sync"
	"time"

	applog "homedeck/internal/log"
	"homedeck/models"
)

// Phase is the reconciliation state of one browser session.
type Phase int

const (
	// PhaseUnloaded means no profile settings have been applied yet.
	PhaseUnloaded Phase = iota
	// PhaseSyncing means local changes are mirrored back to the profile.
	PhaseSyncing
)

func (p Phase) String() string {
	if p == PhaseSyncing {
		return "syncing"
	}
	return "unloaded"
}

// SaveFunc persists settings on the profile of identityID.
type SaveFunc func(ctx context.Context, identityID string, s models.Settings) error

// Options tunes a Reconciler. Zero values select the defaults.
type Options struct {
	Debounce    time.Duration
	ApplyGuard  time.Duration
	StateTTL    time.Duration
	SaveTimeout time.Duration
}

type stopper interface {
	Stop() bool
}

type sessionState struct {
	phase         Phase
	identityID    string
	lastKnown     models.Settings
	latest        models.Settings
	applyingUntil time.Time
	pending       stopper
	generation    uint64
	touched       time.Time
}

// Reconciler keeps the local preferences of each browser session in step with
// the signed-in profile. Profile values are applied once per login; after that
// local changes win and are saved back after a debounce.
type Reconciler struct {
	save SaveFunc
	opts Options

	mu     sync.Mutex
	states map[string]*sessionState

	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper
}

// NewReconciler returns a Reconciler that persists through save.
func NewReconciler(save SaveFunc, opts Options) *Reconciler {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.ApplyGuard < 0 {
		opts.ApplyGuard = 0
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = 24 * time.Hour
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 10 * time.Second
	}
	return &Reconciler{
		save:   save,
		opts:   opts,
		states: make(map[string]*sessionState),
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Phase reports the phase of the session identified by key.
func (r *Reconciler) Phase(key string) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[key]; ok {
		return st.phase
	}
	return PhaseUnloaded
}

// Load runs the one-shot apply step. It returns the settings the session
// should display and whether profile values were applied. Once a session is
// syncing for identityID, later calls return local unchanged until Reset.
func (r *Reconciler) Load(key, identityID string, profile, local models.Settings) (models.Settings, bool) {
	if key == "" || identityID == "" {
		return local, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	st, ok := r.states[key]
	if ok && st.phase == PhaseSyncing && st.identityID == identityID {
		st.touched = now
		return local, false
	}
	if ok {
		stopPending(st)
	}

	profile = profile.Sanitize()
	applied := local
	if applied.Theme != profile.Theme {
		applied.Theme = profile.Theme
	}
	if applied.ColorTheme != profile.ColorTheme {
		applied.ColorTheme = profile.ColorTheme
	}
	if applied.Language != profile.Language {
		applied.Language = profile.Language
	}
	if applied.BlobCount != profile.BlobCount {
		applied.BlobCount = profile.BlobCount
	}

	r.states[key] = &sessionState{
		phase:         PhaseSyncing,
		identityID:    identityID,
		lastKnown:     profile,
		latest:        profile,
		applyingUntil: now.Add(r.opts.ApplyGuard),
		touched:       now,
	}
	return applied, true
}

// Observe reports a committed local change. It returns true when a save was
// scheduled. Changes are ignored before Load, suppressed inside the apply
// guard window, and dropped when they match the last known profile values.
// Each call supersedes any save still waiting in the debounce window.
func (r *Reconciler) Observe(ctx context.Context, key string, local models.Settings) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[key]
	if !ok || st.phase != PhaseSyncing {
		return false
	}
	now := r.now()
	st.touched = now
	if now.Before(st.applyingUntil) {
		applog.Debug(ctx, "preference change suppressed during apply", "identity", st.identityID)
		return false
	}

	stopPending(st)
	st.generation++

	local = local.Sanitize()
	st.latest = local
	if local == st.lastKnown {
		return false
	}
	r.schedule(context.WithoutCancel(ctx), key, st)
	return true
}

// schedule queues a save of st.latest after the debounce. The caller holds
// r.mu.
func (r *Reconciler) schedule(ctx context.Context, key string, st *sessionState) {
	generation := st.generation
	identityID := st.identityID
	s := st.latest
	st.pending = r.afterFunc(r.opts.Debounce, func() {
		r.flush(ctx, key, identityID, generation, s)
	})
}

func (r *Reconciler) flush(ctx context.Context, key, identityID string, generation uint64, s models.Settings) {
	r.mu.Lock()
	st, ok := r.states[key]
	if !ok || st.identityID != identityID || st.generation != generation {
		r.mu.Unlock()
		return
	}
	st.pending = nil
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.opts.SaveTimeout)
	defer cancel()

	if err := r.save(ctx, identityID, s); err != nil {
		applog.Warn(ctx, "failed to save preferences", "identity", identityID, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok = r.states[key]
	if !ok || st.identityID != identityID {
		return
	}
	st.lastKnown = s
	applog.Debug(ctx, "preferences saved", "identity", identityID)

	// Changes observed while the save was in flight were compared against
	// the previous profile values and may have been dropped.
	if st.generation != generation && st.pending == nil && st.latest != s {
		st.generation++
		r.schedule(context.WithoutCancel(ctx), key, st)
	}
}

// Reset returns the session to PhaseUnloaded and drops any pending save. It
// is called on sign-out and whenever the session's identity changes.
func (r *Reconciler) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[key]; ok {
		stopPending(st)
		delete(r.states, key)
	}
}

// Sweep forgets idle sessions last touched more than StateTTL ago and returns
// how many were removed.
func (r *Reconciler) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.opts.StateTTL)
	removed := 0
	for key, st := range r.states {
		if st.pending == nil && st.touched.Before(cutoff) {
			delete(r.states, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				applog.Debug(ctx, "swept idle preference sessions", "count", n)
			}
		}
	}
}

func stopPending(st *sessionState) {
	if st.pending != nil {
		st.pending.Stop()
		st.pending = nil
	}
}
