// Package server wires the request counter and the static routes into an
// HTTP handler and runs it.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ropes/tally/pkg/metrics"
	"github.com/ropes/tally/pkg/traffic"
	log "github.com/sirupsen/logrus"
)

// Sequencer hands out request numbers.
type Sequencer interface {
	Next() (int64, error)
}

// Notifier is told about every request number after the counter lock
// has been released.
type Notifier interface {
	Notify(ctx context.Context, seq int64)
}

// RateRecorder is fed one increment per request served.
type RateRecorder interface {
	Increment(inc int, now time.Time)
}

type routes struct {
	router *mux.Router
	seq    Sequencer
	logger *log.Logger

	metrics  *metrics.Metrics
	tally    *traffic.RequestCounter
	notifier Notifier
	rate     RateRecorder
}

// Option configures the handler returned by Routes.
type Option func(*routes)

// WithLogger sets the access and error logger.
func WithLogger(l *log.Logger) Option {
	return func(rt *routes) { rt.logger = l }
}

// WithMetrics records requests in m and serves it on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(rt *routes) { rt.metrics = m }
}

// WithTally counts requests per route in rc.
func WithTally(rc *traffic.RequestCounter) Option {
	return func(rt *routes) { rt.tally = rc }
}

// WithNotifier publishes each request number to n.
func WithNotifier(n Notifier) Option {
	return func(rt *routes) { rt.notifier = n }
}

// WithRate counts every request, matched or not, in rec.
func WithRate(rec RateRecorder) Option {
	return func(rt *routes) { rt.rate = rec }
}

// Routes builds the router:
//
//	GET  /          request number
//	GET  /app       "app"        HEAD /app       405
//	GET  /api/test  "test"       HEAD /api/test  405
//	GET  /metrics   Prometheus exposition, with WithMetrics
func Routes(seq Sequencer, opts ...Option) http.Handler {
	rt := &routes{
		router: mux.NewRouter(),
		seq:    seq,
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	r := rt.router
	r.HandleFunc("/", rt.index).Methods(http.MethodGet)
	appRoutes(r)
	apiRoutes(r.PathPrefix("/api").Subrouter())
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler()).Methods(http.MethodGet)
	}

	return rt.instrument(r)
}

func appRoutes(r *mux.Router) {
	r.HandleFunc("/app", text("app")).Methods(http.MethodGet)
	r.HandleFunc("/app", methodNotAllowed).Methods(http.MethodHead)
}

func apiRoutes(r *mux.Router) {
	r.HandleFunc("/test", text("test")).Methods(http.MethodGet)
	r.HandleFunc("/test", methodNotAllowed).Methods(http.MethodHead)
}

// index advances the shared counter and reports the new value.
func (rt *routes) index(w http.ResponseWriter, r *http.Request) {
	n, err := rt.seq.Next()
	if err != nil {
		rt.logger.WithFields(log.Fields{"err": err}).Error("request counter unavailable")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if rt.notifier != nil {
		rt.notifier.Notify(r.Context(), n)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Request number: %d", n)
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, body)
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
