package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// DefaultRetryInterval is how often a degraded registry re-queries the platform
const DefaultRetryInterval = 5 * time.Second

// Option configures a Registry
type Option func(*Registry)

// WithRetryInterval overrides the degraded-state retry interval
func WithRetryInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// WithWatcher adds an extra change-event source (e.g. a D-Bus watcher)
func WithWatcher(w Watcher) Option {
	return func(r *Registry) {
		if w != nil {
			r.watchers = append(r.watchers, w)
		}
	}
}

// Registry enumerates displays, caches the list and tracks the primary.
// The cache is invalidated by platform change events and refreshed by a
// retry loop while the registry is degraded.
type Registry struct {
	platform      Platform
	watchers      []Watcher
	retryInterval time.Duration

	mu        sync.RWMutex
	cached    []Info
	valid     bool
	degraded  bool
	retryStop chan struct{}
	stops     []func()
	started   bool

	listenersMu sync.RWMutex
	callbacks   []func([]Info)
	listeners   []chan []Info
}

// NewRegistry creates a registry over the given platform
func NewRegistry(platform Platform, opts ...Option) *Registry {
	r := &Registry{
		platform:      platform,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes to change events and primes the cache
func (r *Registry) Start() error {
	log := logger.WithComponent("display-registry")

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("display registry already started")
	}
	r.started = true
	r.mu.Unlock()

	sources := append([]Watcher{r.platform}, r.watchers...)
	for i, w := range sources {
		stop, err := w.Watch(r.handleChange)
		if err != nil {
			if i == 0 {
				log.Warn().Err(err).Str("platform", r.platform.Name()).
					Msg("Platform change events unavailable, display list refreshes on retry only")
			} else {
				log.Warn().Err(err).Msg("Failed to start extra display watcher")
			}
			continue
		}
		r.mu.Lock()
		r.stops = append(r.stops, stop)
		r.mu.Unlock()
	}

	displays := r.List()
	log.Info().
		Str("platform", r.platform.Name()).
		Int("displays", len(displays)).
		Msg("Display registry started")
	return nil
}

// Close stops watchers and the retry loop and closes subscriber channels
func (r *Registry) Close() {
	r.mu.Lock()
	stops := r.stops
	r.stops = nil
	if r.retryStop != nil {
		close(r.retryStop)
		r.retryStop = nil
	}
	r.cached = nil
	r.valid = false
	r.started = false
	r.mu.Unlock()

	for _, stop := range stops {
		stop()
	}

	r.listenersMu.Lock()
	for _, ch := range r.listeners {
		close(ch)
	}
	r.listeners = nil
	r.callbacks = nil
	r.listenersMu.Unlock()
}

// List returns the cached display list, enumerating on a cache miss
func (r *Registry) List() []Info {
	r.mu.RLock()
	if r.valid {
		out := cloneInfos(r.cached)
		r.mu.RUnlock()
		return out
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.valid {
		r.enumerateLocked()
	}
	return cloneInfos(r.cached)
}

// Degraded reports whether the registry is serving a fallback list
func (r *Registry) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}

// Primary returns the primary display of the current list
func (r *Registry) Primary() (Info, bool) {
	for _, d := range r.List() {
		if d.IsPrimary {
			return d, true
		}
	}
	return Info{}, false
}

// PrimaryID returns the id of the primary display
func (r *Registry) PrimaryID() (int64, bool) {
	d, ok := r.Primary()
	return d.ID, ok
}

// VirtualBounds returns the bounding box of the current display list
func (r *Registry) VirtualBounds() Rect {
	return VirtualBounds(r.List())
}

// At returns the display nearest to (x, y). Points outside every display
// still resolve; ErrNoDisplay is returned only when the lookup itself fails.
func (r *Registry) At(x, y int) (Info, error) {
	log := logger.WithComponent("display-registry")

	d, err := r.platform.Nearest(x, y)
	if err != nil {
		log.Error().Err(err).Int("x", x).Int("y", y).Msg("Nearest display lookup failed")
		return Info{}, fmt.Errorf("%w: lookup at (%d, %d): %v", ErrNoDisplay, x, y, err)
	}

	primaryID, hasPrimary := r.PrimaryID()

	if d == nil {
		log.Warn().Int("x", x).Int("y", y).Msg("No display found at point, falling back to primary")
		p, err := r.platform.Primary()
		if err != nil {
			return Info{}, fmt.Errorf("%w: no display near (%d, %d) and no primary: %v", ErrNoDisplay, x, y, err)
		}
		p.IsPrimary = true
		return sanitize(p), nil
	}

	info := sanitize(*d)
	info.IsPrimary = hasPrimary && info.ID == primaryID
	return info, nil
}

// OnChange registers a callback invoked synchronously with the fresh list
// whenever the registry updates
func (r *Registry) OnChange(cb func([]Info)) {
	r.listenersMu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.listenersMu.Unlock()
}

// Subscribe adds a listener channel for display changes
func (r *Registry) Subscribe() chan []Info {
	ch := make(chan []Info, 10)
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, ch)
	r.listenersMu.Unlock()
	return ch
}

// Unsubscribe removes a listener
func (r *Registry) Unsubscribe(ch chan []Info) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Refresh drops the cache, re-enumerates and notifies subscribers
func (r *Registry) Refresh() []Info {
	r.mu.Lock()
	r.valid = false
	r.enumerateLocked()
	displays := cloneInfos(r.cached)
	r.mu.Unlock()

	r.notify(displays)
	return displays
}

func (r *Registry) handleChange() {
	logger.WithComponent("display-registry").Debug().Msg("Display configuration changed")
	r.Refresh()
}

// notify runs callbacks first so dependent caches are invalidated before
// channel subscribers observe the change
func (r *Registry) notify(displays []Info) {
	r.listenersMu.RLock()
	defer r.listenersMu.RUnlock()

	for _, cb := range r.callbacks {
		cb(cloneInfos(displays))
	}
	for _, listener := range r.listeners {
		select {
		case listener <- cloneInfos(displays):
		default:
			// Skip if channel is full
		}
	}
}

// enumerateLocked refreshes r.cached from the platform (caller holds r.mu)
func (r *Registry) enumerateLocked() {
	log := logger.WithComponent("display-registry")

	displays, err := r.platform.Displays()
	if err == nil && len(displays) > 0 {
		r.cached = r.markPrimary(displays)
		r.valid = true
		r.degraded = false
		r.stopRetryLocked()
		return
	}

	if err != nil {
		log.Error().Err(err).Str("platform", r.platform.Name()).
			Msg("Failed to enumerate displays, falling back to primary display")
	} else {
		log.Warn().Msg("No displays detected, falling back to primary display")
	}

	r.degraded = true
	r.valid = true
	primary, perr := r.platform.Primary()
	if perr != nil {
		log.Error().Err(perr).Msg("Primary display unavailable, display list is empty")
		r.cached = []Info{}
	} else {
		primary.IsPrimary = true
		r.cached = []Info{sanitize(primary)}
	}
	r.startRetryLocked()
}

func (r *Registry) markPrimary(displays []Info) []Info {
	out := make([]Info, len(displays))
	primaryID := displays[0].ID
	if p, err := r.platform.Primary(); err == nil {
		primaryID = p.ID
	}

	found := false
	for i, d := range displays {
		d = sanitize(d)
		d.IsPrimary = !found && d.ID == primaryID
		if d.IsPrimary {
			found = true
		}
		out[i] = d
	}
	if !found {
		out[0].IsPrimary = true
	}
	return out
}

func (r *Registry) startRetryLocked() {
	if r.retryStop != nil {
		return
	}
	stop := make(chan struct{})
	r.retryStop = stop

	logger.WithComponent("display-registry").Info().
		Dur("interval", r.retryInterval).
		Msg("Starting display retry loop")
	go r.retryLoop(stop)
}

func (r *Registry) stopRetryLocked() {
	if r.retryStop != nil {
		close(r.retryStop)
		r.retryStop = nil
	}
}

func (r *Registry) retryLoop(stop chan struct{}) {
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if displays, ok := r.tryRecover(stop); ok {
				logger.WithComponent("display-registry").Info().
					Int("displays", len(displays)).
					Msg("Display enumeration recovered")
				r.notify(displays)
				return
			}
		}
	}
}

// tryRecover re-queries the platform and installs the list if it is
// non-degenerate: more than one display, or one with positive width
func (r *Registry) tryRecover(stop chan struct{}) ([]Info, bool) {
	displays, err := r.platform.Displays()
	if err != nil {
		logger.WithComponent("display-registry").Debug().Err(err).Msg("Display retry failed")
		return nil, false
	}
	if !healthy(displays) {
		return nil, false
	}
	marked := r.markPrimary(displays)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retryStop != stop {
		// Superseded by Close or a successful refresh
		return nil, false
	}
	close(r.retryStop)
	r.retryStop = nil
	r.cached = marked
	r.valid = true
	r.degraded = false
	return cloneInfos(marked), true
}

func healthy(displays []Info) bool {
	return len(displays) > 1 || (len(displays) == 1 && displays[0].Bounds.Width > 0)
}

// sanitize enforces non-negative bounds and a positive scale factor
func sanitize(d Info) Info {
	if d.Bounds.Width < 0 {
		d.Bounds.Width = 0
	}
	if d.Bounds.Height < 0 {
		d.Bounds.Height = 0
	}
	if d.ScaleFactor <= 0 {
		d.ScaleFactor = 1
	}
	return d
}

func cloneInfos(in []Info) []Info {
	if in == nil {
		return []Info{}
	}
	out := make([]Info, len(in))
	copy(out, in)
	return out
}
