package display

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakePlatform is a scriptable Platform for registry tests
type fakePlatform struct {
	mu          sync.Mutex
	displays    []Info
	displaysErr error
	primary     *Info
	primaryErr  error
	nearest     *Info
	nearestErr  error
	onChange    func()
	watchErr    error

	displayCalls int32
	stopped      int32
}

func (f *fakePlatform) Name() string { return "fake" }
func (f *fakePlatform) Close() error { return nil }

func (f *fakePlatform) Displays() ([]Info, error) {
	atomic.AddInt32(&f.displayCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displaysErr != nil {
		return nil, f.displaysErr
	}
	out := make([]Info, len(f.displays))
	copy(out, f.displays)
	return out, nil
}

func (f *fakePlatform) Primary() (Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.primaryErr != nil {
		return Info{}, f.primaryErr
	}
	if f.primary != nil {
		return *f.primary, nil
	}
	if len(f.displays) > 0 {
		return f.displays[0], nil
	}
	return Info{}, errors.New("no primary")
}

func (f *fakePlatform) Nearest(x, y int) (*Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}
	return f.nearest, nil
}

func (f *fakePlatform) Watch(onChange func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	f.onChange = onChange
	return func() { atomic.AddInt32(&f.stopped, 1) }, nil
}

func (f *fakePlatform) set(displays []Info, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displays = displays
	f.displaysErr = err
}

func (f *fakePlatform) fire() {
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	cb()
}

var (
	primaryDisplay   = Info{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, ScaleFactor: 1}
	secondaryDisplay = Info{ID: 2, Bounds: Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}, ScaleFactor: 1}
)

func TestRegistry_SingleDisplay(t *testing.T) {
	p := &fakePlatform{displays: []Info{primaryDisplay}}
	r := NewRegistry(p)
	defer r.Close()

	displays := r.List()
	if len(displays) != 1 {
		t.Fatalf("expected 1 display, got %d", len(displays))
	}
	if !displays[0].IsPrimary {
		t.Error("single display should be primary")
	}
	if vb := r.VirtualBounds(); vb != primaryDisplay.Bounds {
		t.Errorf("virtual bounds %v, want %v", vb, primaryDisplay.Bounds)
	}
	if r.Degraded() {
		t.Error("registry should not be degraded")
	}
}

func TestRegistry_CachesList(t *testing.T) {
	p := &fakePlatform{displays: []Info{primaryDisplay, secondaryDisplay}}
	r := NewRegistry(p)
	defer r.Close()

	r.List()
	r.List()
	r.List()

	if calls := atomic.LoadInt32(&p.displayCalls); calls != 1 {
		t.Errorf("expected 1 enumeration, got %d", calls)
	}
}

func TestRegistry_MarksExactlyOnePrimary(t *testing.T) {
	second := secondaryDisplay
	p := &fakePlatform{
		displays: []Info{primaryDisplay, second, {ID: 2, Bounds: Rect{X: 4480, Width: 800, Height: 600}}},
		primary:  &second,
	}
	r := NewRegistry(p)
	defer r.Close()

	count := 0
	for _, d := range r.List() {
		if d.IsPrimary {
			count++
			if d.ID != 2 {
				t.Errorf("display %d marked primary, want 2", d.ID)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one primary, got %d", count)
	}

	id, ok := r.PrimaryID()
	if !ok || id != 2 {
		t.Errorf("PrimaryID() = %d, %v; want 2, true", id, ok)
	}
}

func TestRegistry_UnknownPrimaryFallsBackToFirst(t *testing.T) {
	ghost := Info{ID: 99}
	p := &fakePlatform{displays: []Info{primaryDisplay, secondaryDisplay}, primary: &ghost}
	r := NewRegistry(p)
	defer r.Close()

	displays := r.List()
	if !displays[0].IsPrimary || displays[1].IsPrimary {
		t.Errorf("expected first display primary, got %+v", displays)
	}
}

func TestRegistry_SanitizesBounds(t *testing.T) {
	p := &fakePlatform{displays: []Info{{ID: 5, Bounds: Rect{Width: -10, Height: -1}, ScaleFactor: 0}}}
	r := NewRegistry(p)
	defer r.Close()

	d := r.List()[0]
	if d.Bounds.Width != 0 || d.Bounds.Height != 0 {
		t.Errorf("expected non-negative bounds, got %v", d.Bounds)
	}
	if d.ScaleFactor != 1 {
		t.Errorf("expected scale factor 1, got %v", d.ScaleFactor)
	}
}

func TestRegistry_NoDisplaysFallsBackAndRecovers(t *testing.T) {
	p := &fakePlatform{primary: &primaryDisplay}
	r := NewRegistry(p, WithRetryInterval(10*time.Millisecond))
	defer r.Close()

	updates := r.Subscribe()

	displays := r.List()
	if len(displays) != 1 || displays[0].ID != primaryDisplay.ID || !displays[0].IsPrimary {
		t.Fatalf("expected primary fallback, got %+v", displays)
	}
	if !r.Degraded() {
		t.Error("registry should be degraded")
	}

	p.set([]Info{primaryDisplay, secondaryDisplay}, nil)

	select {
	case got := <-updates:
		if len(got) != 2 {
			t.Errorf("expected 2 displays after recovery, got %d", len(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recovery notification")
	}

	if r.Degraded() {
		t.Error("registry should have recovered")
	}
	if n := len(r.List()); n != 2 {
		t.Errorf("expected cached list of 2, got %d", n)
	}
}

func TestRegistry_RetryIgnoresDegenerateList(t *testing.T) {
	p := &fakePlatform{primary: &primaryDisplay}
	r := NewRegistry(p, WithRetryInterval(5*time.Millisecond))
	defer r.Close()

	r.List()
	p.set([]Info{{ID: 1, Bounds: Rect{Width: 0, Height: 0}}}, nil)

	time.Sleep(50 * time.Millisecond)
	if !r.Degraded() {
		t.Error("a single zero-width display should not end the retry loop")
	}
}

func TestRegistry_EnumerationErrorFallsBackToPrimary(t *testing.T) {
	p := &fakePlatform{displaysErr: errors.New("boom"), primary: &primaryDisplay}
	r := NewRegistry(p, WithRetryInterval(time.Hour))
	defer r.Close()

	displays := r.List()
	if len(displays) != 1 || !displays[0].IsPrimary {
		t.Fatalf("expected primary fallback, got %+v", displays)
	}
}

func TestRegistry_EnumerationAndPrimaryErrorReturnsEmpty(t *testing.T) {
	p := &fakePlatform{displaysErr: errors.New("boom"), primaryErr: errors.New("also boom")}
	r := NewRegistry(p, WithRetryInterval(time.Hour))
	defer r.Close()

	displays := r.List()
	if displays == nil || len(displays) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", displays)
	}
	if vb := r.VirtualBounds(); vb != (Rect{}) {
		t.Errorf("expected zero virtual bounds, got %v", vb)
	}
}

func TestRegistry_ChangeEventInvalidatesAndNotifies(t *testing.T) {
	p := &fakePlatform{displays: []Info{primaryDisplay}}
	r := NewRegistry(p)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	var order []string
	var mu sync.Mutex
	r.OnChange(func(displays []Info) {
		mu.Lock()
		order = append(order, "callback")
		mu.Unlock()
	})
	updates := r.Subscribe()

	p.set([]Info{primaryDisplay, secondaryDisplay}, nil)
	p.fire()

	select {
	case got := <-updates:
		mu.Lock()
		order = append(order, "channel")
		mu.Unlock()
		if len(got) != 2 {
			t.Errorf("expected 2 displays, got %d", len(got))
		}
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	mu.Lock()
	if len(order) != 2 || order[0] != "callback" {
		t.Errorf("callbacks must run before channel delivery, got %v", order)
	}
	mu.Unlock()

	if n := len(r.List()); n != 2 {
		t.Errorf("cache not refreshed, got %d displays", n)
	}

	r.Close()
	if atomic.LoadInt32(&p.stopped) != 1 {
		t.Error("Close should stop the platform watcher")
	}
	if _, open := <-updates; open {
		t.Error("Close should close subscriber channels")
	}
}

func TestRegistry_StartTwice(t *testing.T) {
	r := NewRegistry(&fakePlatform{displays: []Info{primaryDisplay}})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	if err := r.Start(); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestRegistry_StartSurvivesWatchError(t *testing.T) {
	r := NewRegistry(&fakePlatform{displays: []Info{primaryDisplay}, watchErr: errors.New("no events")})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatalf("Start() should tolerate watch errors, got %v", err)
	}
	if len(r.List()) != 1 {
		t.Error("display list should still be available")
	}
}

func TestRegistry_At(t *testing.T) {
	second := secondaryDisplay

	t.Run("nearest display", func(t *testing.T) {
		p := &fakePlatform{displays: []Info{primaryDisplay, secondaryDisplay}, nearest: &second}
		r := NewRegistry(p)
		defer r.Close()

		d, err := r.At(2000, 500)
		if err != nil {
			t.Fatalf("At() error: %v", err)
		}
		if d.ID != 2 || d.IsPrimary {
			t.Errorf("At() = %+v, want non-primary display 2", d)
		}
	})

	t.Run("no answer falls back to primary", func(t *testing.T) {
		p := &fakePlatform{displays: []Info{primaryDisplay, secondaryDisplay}}
		r := NewRegistry(p)
		defer r.Close()

		d, err := r.At(5000, 5000)
		if err != nil {
			t.Fatalf("At() error: %v", err)
		}
		if d.ID != 1 || !d.IsPrimary {
			t.Errorf("At() = %+v, want primary display 1", d)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		p := &fakePlatform{displays: []Info{primaryDisplay}, nearestErr: errors.New("screen gone")}
		r := NewRegistry(p)
		defer r.Close()

		if _, err := r.At(0, 0); !errors.Is(err, ErrNoDisplay) {
			t.Errorf("expected ErrNoDisplay, got %v", err)
		}
	})
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry(&fakePlatform{displays: []Info{primaryDisplay}})
	defer r.Close()

	ch := r.Subscribe()
	r.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("Unsubscribe should close the channel")
	}

	// Must not panic sending to the removed channel
	r.Refresh()
}

func TestPollChanges(t *testing.T) {
	var mu sync.Mutex
	current := []Info{primaryDisplay}
	list := func() ([]Info, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Info, len(current))
		copy(out, current)
		return out, nil
	}

	changed := make(chan struct{}, 1)
	stop := pollChanges(5*time.Millisecond, list, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer stop()

	select {
	case <-changed:
		t.Fatal("no change should be reported for an identical list")
	case <-time.After(30 * time.Millisecond):
	}

	mu.Lock()
	current = []Info{primaryDisplay, secondaryDisplay}
	mu.Unlock()

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}
