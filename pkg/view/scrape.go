// Package view renders a terminal dashboard for a running tally server.
package view

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/ropes/tally/pkg/metrics"
	"github.com/ropes/tally/pkg/traffic"
)

// Snapshot is one scrape of a tally server's metrics.
type Snapshot struct {
	Value    float64
	Poisoned bool
	Routes   []traffic.Request
}

// Scrape fetches and parses <target>/metrics. It never touches the
// counter route.
func Scrape(ctx context.Context, client *http.Client, target string) (Snapshot, error) {
	url := strings.TrimSuffix(target, "/") + "/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Snapshot{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("scrape %s: unexpected status %s", url, resp.Status)
	}
	return Parse(resp.Body)
}

// Parse reads a Prometheus text exposition.
func Parse(r io.Reader) (Snapshot, error) {
	var parser expfmt.TextParser
	fams, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse exposition: %w", err)
	}

	var s Snapshot
	if f, ok := fams[metrics.CounterValue]; ok && len(f.GetMetric()) > 0 {
		s.Value = f.GetMetric()[0].GetGauge().GetValue()
	}
	if f, ok := fams[metrics.CounterPoisoned]; ok && len(f.GetMetric()) > 0 {
		s.Poisoned = f.GetMetric()[0].GetGauge().GetValue() > 0
	}

	sums := make(map[string]uint64)
	if f, ok := fams[metrics.Requests]; ok {
		for _, m := range f.GetMetric() {
			l := labels(m)
			sums[l["method"]+" "+l["route"]] += uint64(m.GetCounter().GetValue())
		}
	}
	s.Routes = traffic.TopN(sums, -1)
	return s, nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func statusRows(target string, s Snapshot) []string {
	state := "[ok](fg:green)"
	value := fmt.Sprintf("%.0f", s.Value)
	if s.Poisoned {
		state = "[poisoned](fg:red)"
		value = "-"
	}
	return []string{
		fmt.Sprintf("target:  %s", target),
		fmt.Sprintf("counter: %s", value),
		fmt.Sprintf("state:   %s", state),
	}
}

func routeRows(s Snapshot) []string {
	rows := make([]string, 0, len(s.Routes))
	for i, r := range s.Routes {
		rows = append(rows, fmt.Sprintf("[%d] %s -> %d", i+1, r.Route, r.C))
	}
	return rows
}
