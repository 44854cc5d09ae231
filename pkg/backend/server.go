package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/tracelane/pkg/cache"
	"github.com/matzehuels/tracelane/pkg/errors"
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/observability"
)

// Stateful is a Backend whose answers depend on server-side view state.
// Fingerprint changes whenever any answer could change.
type Stateful interface {
	Backend
	Fingerprint() string

	// PartialGraphAt is PartialGraph plus the fingerprint of the state the
	// window was built from.
	PartialGraphAt(ctx context.Context, begin, end int) ([]byte, string, error)
}

// ServerOptions configures a Server.
type ServerOptions struct {
	// Cache stores encoded responses. Nil disables caching.
	Cache cache.Cache
	// Keyer derives cache keys. Nil uses cache.NewDefaultKeyer.
	Keyer cache.Keyer
	// TTL bounds the lifetime of cached responses. Zero keeps them until
	// the cache evicts them.
	TTL time.Duration

	Logger *log.Logger
}

// Server exposes a Backend over HTTP.
//
//	GET  /api/timeslots          {"timeslots": n}
//	GET  /api/graph?begin&end    partial graph JSON
//	POST /api/module/toggle      {"path": [...], "timestamp": t}
//	POST /api/head               {"id": n}
//	POST /api/head/reset
//	POST /api/editor             {"id": n}
//	GET  /healthz
//
// Errors are answered with {"code": ..., "message": ...} and the status
// given by errors.HTTPStatus.
type Server struct {
	be     Stateful
	slots  cache.Cache
	ranges cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
	flight singleflight.Group
}

// NewServer creates a server for be.
func NewServer(be Stateful, opts ServerOptions) *Server {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Server{
		be:     be,
		slots:  cache.Instrument(opts.Cache, "timeslots"),
		ranges: cache.Instrument(opts.Cache, "range"),
		keyer:  opts.Keyer,
		ttl:    opts.TTL,
		logger: opts.Logger,
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(instrument)
		r.Get("/timeslots", s.handleTimeslots)
		r.Get("/graph", s.handleGraph)
		r.Post("/module/toggle", s.handleToggle)
		r.Post("/head", s.handleSetHead)
		r.Post("/head/reset", s.handleResetHead)
		r.Post("/editor", s.handleEditor)
	})
}

// Handler returns a router with the API and the standard middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	s.Routes(r)
	return r
}

// instrument reports every API call to the RPC hooks, labelled with the
// matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.RPC().OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RPC().OnResponse(r.Context(), r.Method, route, status, time.Since(start))
	})
}

// =============================================================================
// Queries
// =============================================================================

type timeslotsResponse struct {
	Timeslots int `json:"timeslots"`
}

func (s *Server) handleTimeslots(w http.ResponseWriter, r *http.Request) {
	key := s.keyer.TimeslotsKey(s.be.Fingerprint())
	data, err := s.cached(r.Context(), s.slots, key, func(ctx context.Context) ([]byte, string, error) {
		n, err := s.be.Timeslots(ctx)
		if err != nil {
			return nil, "", err
		}
		data, err := json.Marshal(timeslotsResponse{Timeslots: n})
		if s.keyer.TimeslotsKey(s.be.Fingerprint()) != key {
			return data, "", err
		}
		return data, key, err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeRaw(w, data)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	begin, err := intParam(r, "begin")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := intParam(r, "end")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// A mutation may land between the lookup and the build. The window is
	// stored under the fingerprint it was actually built from.
	key := s.keyer.RangeKey(s.be.Fingerprint(), begin, end)
	data, err := s.cached(r.Context(), s.ranges, key, func(ctx context.Context) ([]byte, string, error) {
		data, fp, err := s.be.PartialGraphAt(ctx, begin, end)
		return data, s.keyer.RangeKey(fp, begin, end), err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeRaw(w, data)
}

// cached answers from c when possible. Concurrent misses for the same key
// share one build. build returns the key its result is valid under, which
// differs from key when the state moved on; an empty key skips the write.
func (s *Server) cached(ctx context.Context, c cache.Cache, key string, build func(context.Context) ([]byte, string, error)) ([]byte, error) {
	if data, ok, err := c.Get(ctx, key); err != nil {
		s.logger.Warn("cache read failed", "error", err)
	} else if ok {
		return data, nil
	}

	v, err, shared := s.flight.Do(key, func() (any, error) {
		data, built, err := build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if built != key {
			s.logger.Debug("state moved during build", "key", key, "stored", built)
		}
		if built == "" {
			return data, nil
		}
		if err := c.Set(ctx, built, data, s.ttl); err != nil {
			s.logger.Warn("cache write failed", "error", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("shared in-flight build", "key", key)
	}
	return v.([]byte), nil
}

// =============================================================================
// Commands
// =============================================================================

type toggleRequest struct {
	Path      []string `json:"path"`
	Timestamp int      `json:"timestamp"`
}

type nodeRequest struct {
	ID *graph.NodeID `json:"id"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.command(w, r, "toggle module", s.be.ToggleModule(r.Context(), req.Path, req.Timestamp))
}

func (s *Server) handleSetHead(w http.ResponseWriter, r *http.Request) {
	id, err := nodeParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.command(w, r, "set head", s.be.SetNewHead(r.Context(), id))
}

func (s *Server) handleResetHead(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "reset head", s.be.ResetHead(r.Context()))
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	id, err := nodeParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.command(w, r, "open editor", s.be.OpenInEditor(r.Context(), id))
}

func (s *Server) command(w http.ResponseWriter, r *http.Request, name string, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info(name, "fingerprint", s.be.Fingerprint())
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Encoding helpers
// =============================================================================

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	observability.RPC().OnError(r.Context(), r.Method, r.URL.Path, err)

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: errors.UserMessage(err)})
}

func writeRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(errors.ErrCodeInvalidInput, "missing query parameter %q", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "query parameter %q", name)
	}
	return v, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func nodeParam(r *http.Request) (graph.NodeID, error) {
	var req nodeRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, err
	}
	if req.ID == nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "missing node id")
	}
	return *req.ID, nil
}
