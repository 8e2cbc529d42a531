package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gizak/termui/v3/widgets"
	"github.com/ropes/tally/pkg/metrics"
	"github.com/ropes/tally/pkg/traffic"
)

const exposition = `# HELP tally_counter_value Last request number handed out.
# TYPE tally_counter_value gauge
tally_counter_value 42
# HELP tally_counter_poisoned 1 once the request counter lock has been poisoned.
# TYPE tally_counter_poisoned gauge
tally_counter_poisoned 0
# HELP tally_http_requests_total Total HTTP requests by method, route and status code.
# TYPE tally_http_requests_total counter
tally_http_requests_total{code="200",method="GET",route="/"} 40
tally_http_requests_total{code="500",method="GET",route="/"} 2
tally_http_requests_total{code="200",method="GET",route="/app"} 7
tally_http_requests_total{code="405",method="HEAD",route="/app"} 7
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(exposition))
	if err != nil {
		t.Fatal(err)
	}
	if s.Value != 42 {
		t.Errorf("value %v, exp: 42", s.Value)
	}
	if s.Poisoned {
		t.Error("snapshot should not be poisoned")
	}
	exp := []traffic.Request{
		{Route: "GET /", C: 42},
		{Route: "GET /app", C: 7},
		{Route: "HEAD /app", C: 7},
	}
	if !reflect.DeepEqual(s.Routes, exp) {
		t.Errorf("routes %v, exp: %v", s.Routes, exp)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse(strings.NewReader("tally_counter_value{ 1\n")); err == nil {
		t.Error("expected a parse error")
	}
}

type staticSource struct{ v int64 }

func (s staticSource) Value() (int64, error) { return s.v, nil }
func (s staticSource) Poisoned() bool        { return false }

func TestScrape(t *testing.T) {
	m := metrics.New(staticSource{v: 5})
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("scrape touched %s", r.URL.Path)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	s, err := Scrape(context.Background(), ts.Client(), ts.URL+"/")
	if err != nil {
		t.Fatal(err)
	}
	if s.Value != 5 {
		t.Errorf("value %v, exp: 5", s.Value)
	}
	if len(s.Routes) != 1 || s.Routes[0].Route != "GET /" {
		t.Errorf("routes %v", s.Routes)
	}
}

func TestScrapeStatus(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	if _, err := Scrape(context.Background(), ts.Client(), ts.URL); err == nil {
		t.Error("expected an error for a 404 scrape")
	}
}

func TestDashboardRows(t *testing.T) {
	d := &Dashboard{
		target: "http://127.0.0.1:8080",
		status: widgets.NewList(),
		routes: widgets.NewList(),
		events: widgets.NewList(),
	}

	tests := []struct {
		s      Snapshot
		status []string
		routes []string
	}{
		{
			s: Snapshot{Value: 3, Routes: []traffic.Request{{Route: "GET /", C: 3}}},
			status: []string{
				"target:  http://127.0.0.1:8080",
				"counter: 3",
				"state:   [ok](fg:green)",
			},
			routes: []string{"[1] GET / -> 3"},
		},
		{
			s: Snapshot{Poisoned: true},
			status: []string{
				"target:  http://127.0.0.1:8080",
				"counter: -",
				"state:   [poisoned](fg:red)",
			},
			routes: []string{},
		},
	}

	for i, test := range tests {
		d.Update(test.s)
		if !reflect.DeepEqual(d.status.Rows, test.status) {
			t.Errorf("%d: status rows %q, exp: %q", i, d.status.Rows, test.status)
		}
		if !reflect.DeepEqual(d.routes.Rows, test.routes) {
			t.Errorf("%d: route rows %q, exp: %q", i, d.routes.Rows, test.routes)
		}
	}

	d.Logf("scrape failed: %s", "refused")
	d.Logf("scrape failed: %s", "refused")
	if len(d.events.Rows) != 2 || !strings.HasPrefix(d.events.Rows[1], "[2] ") {
		t.Errorf("scrape log rows %q", d.events.Rows)
	}
}
