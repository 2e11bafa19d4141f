package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/internal/logging"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/dsl"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxBodyBytes bounds dispatch request bodies.
const maxBodyBytes = 1 << 20

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return doc, nil
}

// Server exposes a SlotService over HTTP.
type Server struct {
	Slots    ports.SlotService
	Watcher  ports.Watchable
	Streams  *StreamManager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithWatcher streams action definition changes on /events when no slot is given.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.Watcher = w
	}
}

// WithGatherer serves metrics from g on /metrics (default: the global registry).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for slots.
// Register Publish as a slot observer so /events sees committed transitions.
func NewServer(slots ports.SlotService, opts ...Option) *Server {
	s := &Server{
		Slots:    slots,
		Streams:  NewStreamManager(),
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/actions", s.ListActions)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/slots", func(r chi.Router) {
		r.Get("/", s.ListSlots)
		r.Get("/{id}", s.GetSlot)
		r.Delete("/{id}", s.DeleteSlot)
		r.Post("/{id}/dispatch", s.Dispatch)
		r.Post("/{id}/reset", s.Reset)
	})

	return enableCORS(r)
}

// NewHandler is shorthand for NewServer(slots, opts...).Handler().
func NewHandler(slots ports.SlotService, opts ...Option) http.Handler {
	return NewServer(slots, opts...).Handler()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Sculpt API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// DispatchRequest is the body of POST /slots/{id}/dispatch.
type DispatchRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := LoadSpec(r.Context()); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	} else if err != nil {
		s.logger.Error("OpenAPI spec unavailable", "err", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "sculpt-http",
		"version":     sculpt.Version,
		"api_version": apiVersion,
	})
}

// ListActions handles the GET /actions request.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	actions := s.Slots.Actions()
	if actions == nil {
		actions = []string{}
	}
	s.writeJSON(w, http.StatusOK, actions)
}

// ListSlots handles the GET /slots request.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.Slots.List(r.Context())
	if err != nil {
		s.writeError(w, "List slots", err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	s.writeJSON(w, http.StatusOK, slots)
}

// GetSlot handles the GET /slots/{id} request.
func (s *Server) GetSlot(w http.ResponseWriter, r *http.Request) {
	state, err := s.Slots.LoadOrInit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "Load slot", err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// DeleteSlot handles the DELETE /slots/{id} request.
func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := s.Slots.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "Delete slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch handles the POST /slots/{id}/dispatch request.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body DispatchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Dispatch: Invalid request body", "err", err)
		return
	}
	if body.Type == "" {
		http.Error(w, "Missing action type", http.StatusBadRequest)
		return
	}

	var payload any
	if len(body.Payload) > 0 {
		v, err := domain.ParseJSON(body.Payload)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
			return
		}
		payload = v
	}

	t, err := s.Slots.Dispatch(r.Context(), chi.URLParam(r, "id"), body.Type, payload)
	if err != nil {
		s.writeError(w, "Dispatch", err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

// Reset handles the POST /slots/{id}/reset request.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	t, err := s.Slots.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "Reset", err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

// Publish broadcasts the changes of t to the slot's subscribers.
// Its signature matches session.Observer.
func (s *Server) Publish(ctx context.Context, t *domain.Transition) {
	if !t.Changed() {
		return
	}
	msg, err := json.Marshal(t.Changes)
	if err != nil {
		s.logger.Error("Publish: encode failed", "err", err, "slot_id", t.SlotID)
		return
	}
	s.Streams.Broadcast(t.SlotID, string(msg))
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SlotID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(slotID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[slotID]; !ok {
		sm.subscribers[slotID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[slotID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[slotID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, slotID)
				}
			}
		})
	}
}

func (sm *StreamManager) Broadcast(slotID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[slotID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "slot_id", slotID)
		}
	}
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	slotID := r.URL.Query().Get("slot_id")

	// Definition reload stream
	if slotID == "" {
		if s.Watcher == nil {
			http.Error(w, "slot_id is required: action definitions are not watchable", http.StatusBadRequest)
			return
		}
		events, err := s.Watcher.Watch(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
			return
		}
		writeStreamHeaders(w)
		fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", event)
				flusher.Flush()
			}
		}
	}

	s.logger.Info("SSE: Subscribing to slot updates", "slot_id", slotID)
	ch, cancel := s.Streams.Subscribe(slotID)
	defer cancel()

	writeStreamHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var prefixes []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		for _, p := range strings.Split(watch, ",") {
			prefixes = append(prefixes, strings.TrimSpace(p))
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(prefixes) > 0 {
				filtered, keep := filterChanges(msg, prefixes)
				if !keep {
					continue
				}
				msg = filtered
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// filterChanges keeps the changes at or beneath one of prefixes.
// Messages that cannot be decoded are passed through unchanged.
func filterChanges(msg string, prefixes []string) (string, bool) {
	var changes []json.RawMessage
	if err := json.Unmarshal([]byte(msg), &changes); err != nil {
		return msg, true
	}

	var kept []json.RawMessage
	for _, raw := range changes {
		var c struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		if watched(c.Path, prefixes) {
			kept = append(kept, raw)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	out, err := json.Marshal(kept)
	if err != nil {
		return msg, true
	}
	return string(out), true
}

// watched reports whether path lies under any prefix, or a prefix lies under path.
// Paths that do not parse are kept.
func watched(path string, prefixes []string) bool {
	changed, err := domain.ParsePath(path)
	if err != nil {
		return true
	}
	for _, p := range prefixes {
		prefix, err := domain.ParsePath(p)
		if err != nil {
			continue
		}
		if changed.HasPrefix(prefix) || prefix.HasPrefix(changed) {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnknownAction), errors.Is(err, domain.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrNotRecord),
		errors.Is(err, domain.ErrNotSequence),
		errors.Is(err, domain.ErrNotContainer),
		errors.Is(err, domain.ErrKeyNotFound),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrUnsupportedValue),
		errors.Is(err, dsl.ErrInvalidOp),
		errors.Is(err, dsl.ErrPayload):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err, "status", status)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}
