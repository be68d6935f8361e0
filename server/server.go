// Package server exposes the helio solver over HTTP and streams simulation
// frames to websocket clients.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ChristopherRabotin/helio"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Config configures a Server.
type Config struct {
	Catalog *helio.Catalog
	Solver  helio.Solver
	Scale   float64 // display units per AU, 1 if zero
	Rate    float64 // requests per second per client, unlimited if zero
	Burst   int
	Logger  log.Logger
	// Registry serves /metrics and receives the request metrics. A new registry is used if nil.
	Registry *prometheus.Registry
}

// Server is the HTTP API.
type Server struct {
	catalog  *helio.Catalog
	solver   helio.Solver
	scale    float64
	logger   log.Logger
	limiter  *IPRateLimiter
	hub      *Hub
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	router *mux.Router
}

// New returns a server. It panics if the catalog is nil.
func New(c Config) *Server {
	if c.Catalog == nil {
		panic("server: nil catalog")
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
	if c.Scale <= 0 {
		c.Scale = 1
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		catalog:  c.Catalog,
		solver:   c.Solver,
		scale:    c.Scale,
		logger:   log.With(c.Logger, "subsys", "http"),
		registry: c.Registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "helio_http_request_duration_seconds",
				Help: "Time spent processing request",
			},
			[]string{"route"},
		),
	}
	s.registry.MustRegister(s.requestsTotal, s.requestDuration)
	if c.Rate > 0 {
		burst := c.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = NewIPRateLimiter(rate.Limit(c.Rate), burst)
	}
	s.hub = NewHub(s.scale, c.Logger)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/bodies", s.handleBodies).Methods("GET", "OPTIONS")
	api.HandleFunc("/bodies/{name}", s.handleBody).Methods("GET", "OPTIONS")
	api.HandleFunc("/bodies/{name}/position", s.handlePosition).Methods("GET", "OPTIONS")
	api.HandleFunc("/positions", s.handlePositions).Methods("GET", "OPTIONS")
	api.HandleFunc("/stream", s.hub.ServeWS).Methods("GET", "OPTIONS")
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET", "OPTIONS")

	r.Use(s.instrument)
	r.Use(s.rateLimit)
	r.Use(corsMiddleware)
	s.router = r
}

// Handler returns the HTTP handler of this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub, fed by the simulation frames.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves until the context is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errC := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("status", "listening", "addr", addr)
		errC <- srv.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	level.Info(s.logger).Log("status", "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ElementsResponse describes a catalog body. Every element is a [value, rate] pair.
type ElementsResponse struct {
	Name string     `json:"name"`
	A    [2]float64 `json:"a"`
	E    [2]float64 `json:"e"`
	I    [2]float64 `json:"i"`
	L    [2]float64 `json:"l"`
	W    [2]float64 `json:"w"`
	Node [2]float64 `json:"node"`
}

func newElementsResponse(oe helio.OrbitalElements) ElementsResponse {
	pair := func(e helio.ElementRate) [2]float64 { return [2]float64{e.Value, e.Rate} }
	return ElementsResponse{Name: oe.Name, A: pair(oe.A), E: pair(oe.E), I: pair(oe.I), L: pair(oe.L), W: pair(oe.W), Node: pair(oe.Node)}
}

// PositionResponse is the solution of one body at one epoch.
type PositionResponse struct {
	Name       string         `json:"name"`
	Epoch      time.Time      `json:"epoch"`
	JD         float64        `json:"jd"`
	T          float64        `json:"t"`
	Scale      float64        `json:"scale"`
	Position   helio.Position `json:"position"` // scaled
	Velocity   helio.Velocity `json:"velocity"` // AU/day
	Distance   float64        `json:"distance"` // AU
	M          float64        `json:"mean_anomaly"`
	E          float64        `json:"eccentric_anomaly"`
	Iterations int            `json:"iterations"`
}

func (s *Server) handleBodies(w http.ResponseWriter, r *http.Request) {
	bodies := make([]ElementsResponse, 0, s.catalog.Len())
	for _, name := range s.catalog.Names() {
		oe, _ := s.catalog.ElementsFor(name)
		bodies = append(bodies, newElementsResponse(oe))
	}
	s.writeJSON(w, http.StatusOK, bodies)
}

func (s *Server) handleBody(w http.ResponseWriter, r *http.Request) {
	oe, err := s.catalog.ElementsFor(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newElementsResponse(oe))
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	oe, err := s.catalog.ElementsFor(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	epoch, scale, err := s.queryParams(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sol, err := s.solver.Solve(epoch, oe)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PositionResponse{
		Name:       sol.Body,
		Epoch:      sol.Epoch.UTC(),
		JD:         sol.JD,
		T:          sol.T,
		Scale:      scale,
		Position:   sol.Position.Scale(scale),
		Velocity:   sol.Velocity,
		Distance:   sol.Distance(),
		M:          sol.M,
		E:          sol.E,
		Iterations: sol.Iterations,
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	epoch, scale, err := s.queryParams(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	f, err := s.solver.Tick(s.catalog, epoch, r.URL.Query()["body"]...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewFrameMessage(f, scale))
}

// queryParams reads the epoch (`date` or `jd`, now if neither) and the display `scale`.
func (s *Server) queryParams(r *http.Request) (time.Time, float64, error) {
	q := r.URL.Query()
	epoch := time.Now().UTC()
	switch {
	case q.Get("date") != "" && q.Get("jd") != "":
		return time.Time{}, 0, errors.New("only one of date and jd may be provided")
	case q.Get("date") != "":
		dt, err := helio.ParseEpoch(q.Get("date"))
		if err != nil {
			return time.Time{}, 0, err
		}
		epoch = dt
	case q.Get("jd") != "":
		jd, err := strconv.ParseFloat(q.Get("jd"), 64)
		if err != nil || jd <= 0 {
			return time.Time{}, 0, fmt.Errorf("invalid julian date `%s`", q.Get("jd"))
		}
		epoch = helio.JDToTime(jd)
	}
	scale := s.scale
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return time.Time{}, 0, fmt.Errorf("invalid scale `%s`", v)
		}
		scale = f
	}
	return epoch, scale, nil
}

// writeError maps the solver errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, helio.ErrUnknownBody):
		code = http.StatusNotFound
	case errors.Is(err, helio.ErrConvergence), errors.Is(err, helio.ErrUnsupportedOrbit), errors.Is(err, helio.ErrEpochOutOfRange):
		code = http.StatusUnprocessableEntity
	default:
		level.Error(s.logger).Log("err", err)
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Warn(s.logger).Log("status", "encode failed", "code", code, "err", err)
	}
}

// statusRecorder records the status code of a response.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack allows the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		took := time.Since(start)
		s.requestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.requestDuration.WithLabelValues(route).Observe(took.Seconds())
		level.Debug(s.logger).Log("method", r.Method, "route", route, "code", rec.code, "took", took)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.GetLimiter(clientIP(r)).Allow() {
			s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware enables CORS for web clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
