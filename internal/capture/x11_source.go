package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// X11SourceLister grabs each active CRTC's region of the root window
type X11SourceLister struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	mu     sync.Mutex
}

// NewX11SourceLister connects to the X server and initializes RandR
func NewX11SourceLister() (*X11SourceLister, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize RandR extension: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11SourceLister{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}, nil
}

// Name returns the lister name
func (l *X11SourceLister) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (l *X11SourceLister) Close() error {
	l.conn.Close()
	return nil
}

// ListSources captures every active CRTC. Source ids embed the RandR output
// id so they line up with display ids from the X11 display platform.
func (l *X11SourceLister) ListSources(ctx context.Context, hint image.Point) ([]Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := logger.WithComponent("x11-source")

	depth := int(l.screen.RootDepth)
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported root window depth: %d", depth)
	}

	res, err := randr.GetScreenResourcesCurrent(l.conn, l.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var sources []Source
	for _, crtc := range res.Crtcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := randr.GetCrtcInfo(l.conn, crtc, res.ConfigTimestamp).Reply()
		if err != nil || info.Mode == 0 || len(info.Outputs) == 0 {
			continue
		}

		reply, err := xproto.GetImage(
			l.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(l.root),
			info.X, info.Y,
			info.Width, info.Height,
			0xffffffff,
		).Reply()
		if err != nil {
			log.Warn().
				Err(err).
				Uint32("crtc", uint32(crtc)).
				Msg("Failed to capture CRTC, skipping")
			continue
		}

		img := bgraToRGBA(reply.Data, int(info.Width), int(info.Height))
		sources = append(sources, Source{
			ID:    fmt.Sprintf("screen:%d:0", info.Outputs[0]),
			Name:  fmt.Sprintf("Screen %d", len(sources)+1),
			Image: FitToHint(img, hint),
		})
	}

	log.Debug().Int("sources", len(sources)).Msg("Captured X11 screens")
	return sources, nil
}

// bgraToRGBA converts a ZPixmap payload at depth 24/32 to RGBA with opaque alpha
func bgraToRGBA(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height * 4
	if len(data) < n {
		n = len(data) - len(data)%4
	}
	for i := 0; i < n; i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 255
	}
	return img
}
