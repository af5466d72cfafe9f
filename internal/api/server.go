package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"strconv"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/config"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"github.com/bryanchriswhite/ColorProbe/internal/output"
	"github.com/bryanchriswhite/ColorProbe/internal/overlay"
	"github.com/bryanchriswhite/ColorProbe/internal/probe"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Displays is the display registry as seen by the API
type Displays interface {
	List() []display.Info
	VirtualBounds() display.Rect
	At(x, y int) (display.Info, error)
	Degraded() bool
	Subscribe() chan []display.Info
	Unsubscribe(ch chan []display.Info)
}

// Captures is the capture orchestrator as seen by the API
type Captures interface {
	CaptureAll(ctx context.Context) (*capture.MultiDisplayCapture, error)
	CaptureOne(ctx context.Context, id int64) (capture.DisplayCapture, error)
	Invalidate()
	CheckMemoryUsage() capture.MemoryReport
}

// DisplaysChangedEvent is pushed to stream clients whenever the registry updates
type DisplaysChangedEvent struct {
	Event         string         `json:"event"`
	Displays      []display.Info `json:"displays"`
	VirtualBounds display.Rect   `json:"virtual_bounds"`
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	displays  Displays
	captures  Captures
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	streamFPS int
}

// NewServer creates a new API server. configMgr may be nil.
func NewServer(displays Displays, captures Captures, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		displays:  displays,
		captures:  captures,
		configMgr: configMgr,
		streamFPS: 5,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool; the UI may be served from anywhere
			},
		},
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Displays
	api.HandleFunc("/displays", s.handleListDisplays).Methods("GET")
	api.HandleFunc("/displays/virtual-bounds", s.handleVirtualBounds).Methods("GET")
	api.HandleFunc("/displays/at", s.handleDisplayAt).Methods("GET")
	api.HandleFunc("/displays/stream", s.handleDisplayStream)

	// Capture
	api.HandleFunc("/capture", s.handleCaptureAll).Methods("GET")
	api.HandleFunc("/capture/pixel", s.handlePixel).Methods("GET")
	api.HandleFunc("/capture/invalidate", s.handleInvalidate).Methods("POST")
	api.HandleFunc("/capture/{id:-?[0-9]+}", s.handleCaptureOne).Methods("GET")
	api.HandleFunc("/capture/{id:-?[0-9]+}/image.jpg", s.handleCaptureImage).Methods("GET")
	api.HandleFunc("/capture/{id:-?[0-9]+}/stream", s.handleCaptureStream).Methods("GET")

	api.HandleFunc("/memory/check", s.handleMemoryCheck).Methods("POST")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the HTTP server and blocks until ctx is done
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.WithComponent("api").Info().
			Str("addr", "http://localhost"+addr).
			Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleListDisplays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"displays":       s.displays.List(),
		"virtual_bounds": s.displays.VirtualBounds(),
		"degraded":       s.displays.Degraded(),
	})
}

func (s *Server) handleVirtualBounds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.displays.VirtualBounds())
}

func (s *Server) handleDisplayAt(w http.ResponseWriter, r *http.Request) {
	p, err := pointFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := s.displays.At(p.X, p.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDisplayStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.displays.Subscribe()
	defer s.displays.Unsubscribe(updates)

	// Reader detects client close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(displays []display.Info) error {
		return conn.WriteJSON(DisplaysChangedEvent{
			Event:         "displays-changed",
			Displays:      displays,
			VirtualBounds: display.VirtualBounds(displays),
		})
	}

	if err := send(s.displays.List()); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for {
		select {
		case <-closed:
			return
		case displays, ok := <-updates:
			if !ok {
				return
			}
			if err := send(displays); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleCaptureAll(w http.ResponseWriter, r *http.Request) {
	mc, err := s.captures.CaptureAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mc)
}

func (s *Server) handleCaptureOne(w http.ResponseWriter, r *http.Request) {
	dc, err := s.captureFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dc)
}

func (s *Server) handleCaptureImage(w http.ResponseWriter, r *http.Request) {
	dc, err := s.captureFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Display-Id", strconv.FormatInt(dc.DisplayID, 10))
	if err := output.EncodeJPEG(w, dc.Image, output.DefaultQuality); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Failed to write capture image")
	}
}

// handleCaptureStream streams one display as MJPEG. With ?x=&y= the probe
// marker is drawn at that virtual point on every frame.
func (s *Server) handleCaptureStream(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var marker *display.Point
	if r.URL.Query().Has("x") || r.URL.Query().Has("y") {
		p, err := pointFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		marker = &p
	}

	source := func(ctx context.Context) (*image.RGBA, error) {
		return s.streamFrame(ctx, id, marker)
	}

	output.NewMJPEGStream(source, s.streamFPS).ServeHTTP(w, r)
}

// streamFrame renders one frame of display id, with the marker at a virtual
// point when set. Frame and marker come from the same snapshot.
func (s *Server) streamFrame(ctx context.Context, id int64, marker *display.Point) (*image.RGBA, error) {
	mc, err := s.captures.CaptureAll(ctx)
	if err != nil {
		return nil, err
	}

	dc, ok := mc.Display(id)
	if !ok {
		dc, ok = s.primaryCapture(mc)
		if !ok {
			return nil, fmt.Errorf("%w: display %d and primary display both missing", capture.ErrDisplayNotCaptured, id)
		}
	}

	frame := overlay.Clone(dc.Image)
	if marker != nil {
		if reading, err := probe.Probe(mc, *marker); err == nil && reading.DisplayID == dc.DisplayID {
			c := color.RGBA{R: reading.Color.R, G: reading.Color.G, B: reading.Color.B, A: 255}
			at := image.Pt(reading.Physical.X, reading.Physical.Y)
			overlay.NewMarker(at, c, reading.Hex).Render(frame)
		}
	}
	return frame, nil
}

func (s *Server) primaryCapture(mc *capture.MultiDisplayCapture) (capture.DisplayCapture, bool) {
	for _, d := range s.displays.List() {
		if d.IsPrimary {
			return mc.Display(d.ID)
		}
	}
	return capture.DisplayCapture{}, false
}

func (s *Server) handlePixel(w http.ResponseWriter, r *http.Request) {
	p, err := pointFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mc, err := s.captures.CaptureAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	reading, err := probe.Probe(mc, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.captures.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleMemoryCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.captures.CheckMemoryUsage())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		http.Error(w, "no configuration loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.displays.Degraded() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": "0.1.0",
	})
}

func (s *Server) captureFromPath(r *http.Request) (capture.DisplayCapture, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return capture.DisplayCapture{}, badRequest{err}
	}
	return s.captures.CaptureOne(r.Context(), id)
}

func pointFromQuery(r *http.Request) (display.Point, error) {
	q := r.URL.Query()
	x, err := strconv.Atoi(q.Get("x"))
	if err != nil {
		return display.Point{}, fmt.Errorf("invalid x: %q", q.Get("x"))
	}
	y, err := strconv.Atoi(q.Get("y"))
	if err != nil {
		return display.Point{}, fmt.Errorf("invalid y: %q", q.Get("y"))
	}
	return display.Point{X: x, Y: y}, nil
}

type badRequest struct{ error }

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrCaptureTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, capture.ErrNoSourcesAvailable),
		errors.Is(err, capture.ErrNoMatchingSource),
		errors.Is(err, display.ErrNoDisplay):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrDisplayNotCaptured), errors.Is(err, probe.ErrEmptyCapture):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	logger.WithComponent("api").Warn().
		Err(err).
		Int("status", status).
		Msg("Request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
