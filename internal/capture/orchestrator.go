package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Defaults for Options fields left zero
const (
	DefaultCacheTTL      = 100 * time.Millisecond
	DefaultTimeout       = 5 * time.Second
	DefaultMemoryCeiling = 150 << 20
)

// DisplaySource provides the current display list; *display.Registry satisfies it
type DisplaySource interface {
	List() []display.Info
	PrimaryID() (int64, bool)
}

// changeNotifier is implemented by display sources that report changes
type changeNotifier interface {
	OnChange(cb func([]display.Info))
}

// Options configures an Orchestrator
type Options struct {
	CacheTTL      time.Duration
	Timeout       time.Duration
	MemoryCeiling uint64
	Matchers      Chain
}

// Orchestrator captures every display at once, matches sources to displays
// and keeps the latest snapshot for CacheTTL. Concurrent callers that find
// the cache stale share one in-flight platform call.
type Orchestrator struct {
	displays DisplaySource
	lister   SourceLister
	matchers Chain
	ttl      time.Duration
	timeout  time.Duration
	ceiling  uint64

	now        func() time.Time
	readMemory func() uint64
	freeMemory func()

	mu         sync.RWMutex
	cache      *MultiDisplayCapture
	cachedAt   time.Time
	generation uint64

	group singleflight.Group
}

// NewOrchestrator creates an orchestrator. When displays reports changes,
// each change invalidates the cache before subscribers see it.
func NewOrchestrator(displays DisplaySource, lister SourceLister, opts Options) *Orchestrator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MemoryCeiling == 0 {
		opts.MemoryCeiling = DefaultMemoryCeiling
	}
	if len(opts.Matchers) == 0 {
		opts.Matchers, _ = NewChain(DefaultMatchers, 0, 0)
	}

	o := &Orchestrator{
		displays:   displays,
		lister:     lister,
		matchers:   opts.Matchers,
		ttl:        opts.CacheTTL,
		timeout:    opts.Timeout,
		ceiling:    opts.MemoryCeiling,
		now:        time.Now,
		readMemory: heapInUse,
		freeMemory: releaseMemory,
	}

	if n, ok := displays.(changeNotifier); ok {
		n.OnChange(func([]display.Info) {
			o.Invalidate()
		})
	}
	return o
}

// CaptureAll returns a snapshot of every matched display, reusing the
// cached one while it is younger than the TTL. A shared capture runs detached
// from any single caller's cancellation; each caller stops waiting when its
// own ctx is done.
func (o *Orchestrator) CaptureAll(ctx context.Context) (*MultiDisplayCapture, error) {
	if mc, ok := o.cached(); ok {
		return mc, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := o.group.DoChan("capture-all", func() (interface{}, error) {
		if mc, ok := o.cached(); ok {
			return mc, nil
		}
		return o.capture(shared)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*MultiDisplayCapture), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CaptureOne returns the capture of one display, substituting the primary
// display's capture when id was not matched
func (o *Orchestrator) CaptureOne(ctx context.Context, id int64) (DisplayCapture, error) {
	mc, err := o.CaptureAll(ctx)
	if err != nil {
		return DisplayCapture{}, err
	}

	if dc, ok := mc.Display(id); ok {
		return dc, nil
	}

	log := logger.WithComponent("capture")
	log.Warn().
		Int64("display_id", id).
		Int("captured", len(mc.Displays)).
		Msg("Display not found in capture, falling back to primary display")

	if primaryID, ok := o.displays.PrimaryID(); ok {
		if dc, ok := mc.Display(primaryID); ok {
			return dc, nil
		}
	}

	return DisplayCapture{}, fmt.Errorf("%w: display %d and primary display both missing", ErrDisplayNotCaptured, id)
}

// Invalidate drops the cached snapshot. A capture already in flight still
// returns to its callers but is not stored.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	o.cache = nil
	o.cachedAt = time.Time{}
	o.generation++
	o.mu.Unlock()

	logger.WithComponent("capture").Debug().Msg("Capture cache invalidated")
}

// Cached returns the cached snapshot regardless of age, if any
func (o *Orchestrator) Cached() (*MultiDisplayCapture, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cache, o.cache != nil
}

func (o *Orchestrator) cached() (*MultiDisplayCapture, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.cache == nil || o.now().Sub(o.cachedAt) >= o.ttl {
		return nil, false
	}
	return o.cache, true
}

func (o *Orchestrator) capture(ctx context.Context) (*MultiDisplayCapture, error) {
	log := logger.WithComponent("capture")

	o.mu.RLock()
	gen := o.generation
	o.mu.RUnlock()

	displays := o.displays.List()
	hint := thumbnailHint(displays)

	start := o.now()
	sources, err := o.listSources(ctx, hint)
	if err != nil {
		log.Error().
			Err(err).
			Int("requested", len(displays)).
			Str("lister", o.lister.Name()).
			Msg("Screen capture failed")
		return nil, err
	}

	if len(sources) == 0 {
		log.Error().
			Int("requested", len(displays)).
			Int("found", 0).
			Msg("No screen sources available")
		return nil, fmt.Errorf("%w (requested %d displays)", ErrNoSourcesAvailable, len(displays))
	}

	pairs := o.matchers.Match(displays, sources)
	if len(pairs) == 0 {
		log.Error().
			Int("requested", len(displays)).
			Int("found", len(sources)).
			Msg("No capture source matched any display")
		return nil, fmt.Errorf("%w (requested %d displays, found %d sources)",
			ErrNoMatchingSource, len(displays), len(sources))
	}

	captures := make([]DisplayCapture, 0, len(pairs))
	for _, p := range pairs {
		w, h := p.Source.Size()
		captures = append(captures, DisplayCapture{
			DisplayID:   p.Display.ID,
			SourceID:    p.Source.ID,
			Strategy:    p.Strategy,
			Image:       p.Source.Image,
			Width:       w,
			Height:      h,
			ScaleFactor: p.Display.ScaleFactor,
			Bounds:      p.Display.Bounds,
		})
	}

	mc := &MultiDisplayCapture{
		Displays:      captures,
		VirtualBounds: display.VirtualBounds(displays),
		Timestamp:     o.now(),
	}

	o.mu.Lock()
	if o.generation == gen {
		o.cache = mc
		o.cachedAt = mc.Timestamp
	}
	o.mu.Unlock()

	log.Debug().
		Int("requested", len(displays)).
		Int("found", len(sources)).
		Int("matched", len(captures)).
		Dur("elapsed", o.now().Sub(start)).
		Msg("Captured displays")

	return mc, nil
}

// listSources races the platform call against the timeout. The platform
// call is handed the deadline but is abandoned, not joined, if it ignores it.
func (o *Orchestrator) listSources(ctx context.Context, hint image.Point) ([]Source, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type result struct {
		sources []Source
		err     error
	}
	done := make(chan result, 1)

	go func() {
		sources, err := o.lister.ListSources(ctx, hint)
		done <- result{sources: sources, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrCaptureTimeout, o.timeout)
			}
			return nil, fmt.Errorf("failed to list screen sources: %w", r.err)
		}
		return r.sources, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrCaptureTimeout, o.timeout)
		}
		return nil, ctx.Err()
	}
}
