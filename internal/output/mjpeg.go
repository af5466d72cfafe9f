// Package output serves captured frames over HTTP as JPEG stills and
// Motion JPEG streams.
package output

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// DefaultQuality is the JPEG quality used when none is set
const DefaultQuality = 90

// FrameSource produces the next frame to send
type FrameSource func(ctx context.Context) (*image.RGBA, error)

// EncodeJPEG writes img as a JPEG
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}

// MJPEGStream pulls frames from Source at FPS and writes them to each
// client as multipart/x-mixed-replace until the client disconnects
type MJPEGStream struct {
	Source  FrameSource
	FPS     int
	Quality int

	clients int32
	frames  uint64
}

// NewMJPEGStream creates a stream over source
func NewMJPEGStream(source FrameSource, fps int) *MJPEGStream {
	if fps <= 0 {
		fps = 5
	}
	return &MJPEGStream{Source: source, FPS: fps, Quality: DefaultQuality}
}

// Clients returns the number of connected clients
func (m *MJPEGStream) Clients() int {
	return int(atomic.LoadInt32(&m.clients))
}

// Frames returns the number of frames written across all clients
func (m *MJPEGStream) Frames() uint64 {
	return atomic.LoadUint64(&m.frames)
}

func (m *MJPEGStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("mjpeg")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Connection", "close")

	clients := atomic.AddInt32(&m.clients, 1)
	log.Info().Int32("clients", clients).Msg("MJPEG client connected")
	defer func() {
		remaining := atomic.AddInt32(&m.clients, -1)
		log.Info().Int32("clients", remaining).Msg("MJPEG client disconnected")
	}()

	ctx := r.Context()
	ticker := time.NewTicker(time.Second / time.Duration(m.FPS))
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		frame, err := m.Source(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to get frame, skipping")
		} else {
			buf.Reset()
			if err := EncodeJPEG(&buf, frame, m.Quality); err != nil {
				log.Warn().Err(err).Msg("Failed to encode frame, skipping")
			} else if err := writePart(w, buf.Bytes()); err != nil {
				return
			} else {
				atomic.AddUint64(&m.frames, 1)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
