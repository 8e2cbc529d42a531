package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const unmatchedRoute = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument wraps the whole router rather than using mux middleware, so
// 404 and 405 responses produced by the router are observed too.
func (rt *routes) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := rt.routeName(r)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r)

		d := time.Since(start)
		if rt.rate != nil {
			rt.rate.Increment(1, start)
		}
		if rt.tally != nil {
			rt.tally.IncKey(r.Method+" "+route, 1)
		}
		if rt.metrics != nil {
			rt.metrics.ObserveRequest(r.Method, route, rec.code, d)
		}
		rt.logger.WithFields(log.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   rec.code,
			"duration": d,
			"remote":   r.RemoteAddr,
		}).Debug("request served")
	})
}

// routeName resolves the route template serving r. Paths no route knows
// about collapse into one label.
func (rt *routes) routeName(r *http.Request) string {
	var match mux.RouteMatch
	if rt.router.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	if match.MatchErr == mux.ErrMethodMismatch {
		return r.URL.Path
	}
	return unmatchedRoute
}
