package display

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// X11Platform enumerates monitors through the RandR extension.
// X11 reports physical pixels; logical bounds are derived by dividing by the
// configured scale factor.
type X11Platform struct {
	conn  *xgb.Conn
	root  xproto.Window
	scale float64
	mu    sync.Mutex
}

// NewX11Platform connects to the X server and initializes RandR
func NewX11Platform(scale float64) (*X11Platform, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize RandR extension: %w", err)
	}

	if scale <= 0 {
		scale = 1
	}

	setup := xproto.Setup(conn)
	return &X11Platform{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		scale: scale,
	}, nil
}

// Name returns the platform name
func (p *X11Platform) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (p *X11Platform) Close() error {
	p.conn.Close()
	return nil
}

// Displays lists every CRTC that is driving at least one output
func (p *X11Platform) Displays() ([]Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := randr.GetScreenResourcesCurrent(p.conn, p.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get screen resources: %v", ErrEnumerationFailure, err)
	}

	displays := make([]Info, 0, len(res.Crtcs))
	for _, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(p.conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			logger.WithComponent("x11-display").Debug().
				Err(err).
				Uint32("crtc", uint32(crtc)).
				Msg("Skipping unreadable CRTC")
			continue
		}
		if info.Mode == 0 || len(info.Outputs) == 0 {
			continue
		}

		output := info.Outputs[0]
		d := Info{
			ID:          int64(output),
			Name:        p.outputName(output, res.ConfigTimestamp),
			Bounds:      p.logical(int(info.X), int(info.Y), int(info.Width), int(info.Height)),
			ScaleFactor: p.scale,
		}
		displays = append(displays, d)
	}

	return displays, nil
}

// Primary returns the RandR primary output, or the first display when none is set
func (p *X11Platform) Primary() (Info, error) {
	displays, err := p.Displays()
	if err != nil {
		return Info{}, err
	}
	if len(displays) == 0 {
		return Info{}, fmt.Errorf("%w: no active CRTCs", ErrEnumerationFailure)
	}

	p.mu.Lock()
	reply, err := randr.GetOutputPrimary(p.conn, p.root).Reply()
	p.mu.Unlock()
	if err == nil && reply.Output != 0 {
		for _, d := range displays {
			if d.ID == int64(reply.Output) {
				d.IsPrimary = true
				return d, nil
			}
		}
	}

	d := displays[0]
	d.IsPrimary = true
	return d, nil
}

// Nearest resolves a logical point to the closest display
func (p *X11Platform) Nearest(x, y int) (*Info, error) {
	displays, err := p.Displays()
	if err != nil {
		return nil, err
	}
	d, ok := Nearest(displays, Point{X: x, Y: y})
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// Watch selects RandR change notifications on the root window
func (p *X11Platform) Watch(onChange func()) (func(), error) {
	mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
	if err := randr.SelectInputChecked(p.conn, p.root, mask).Check(); err != nil {
		return nil, fmt.Errorf("failed to select RandR events: %w", err)
	}

	stopChan := make(chan struct{})
	trigger := make(chan struct{}, 1)
	go p.pollEvents(stopChan, trigger)
	go func() {
		for {
			select {
			case <-stopChan:
				return
			case <-trigger:
				onChange()
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stopChan) }) }, nil
}

// pollEvents listens for RandR events; bursts collapse into one pending trigger
func (p *X11Platform) pollEvents(stopChan chan struct{}, trigger chan struct{}) {
	log := logger.WithComponent("x11-display")

	for {
		select {
		case <-stopChan:
			return
		default:
		}

		ev, err := p.conn.PollForEvent()
		if err != nil {
			log.Debug().Err(err).Msg("X11 event poll error")
			continue
		}
		if ev == nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			log.Debug().Str("event", ev.String()).Msg("RandR configuration changed")
			select {
			case trigger <- struct{}{}:
			default:
				// Already pending
			}
		}
	}
}

func (p *X11Platform) outputName(output randr.Output, ts xproto.Timestamp) string {
	info, err := randr.GetOutputInfo(p.conn, output, ts).Reply()
	if err != nil {
		return ""
	}
	return string(info.Name)
}

func (p *X11Platform) logical(x, y, w, h int) Rect {
	if p.scale == 1 {
		return Rect{X: x, Y: y, Width: w, Height: h}
	}
	return Rect{
		X:      int(math.Round(float64(x) / p.scale)),
		Y:      int(math.Round(float64(y) / p.scale)),
		Width:  int(math.Round(float64(w) / p.scale)),
		Height: int(math.Round(float64(h) / p.scale)),
	}
}
