package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ropes/tally/pkg/traffic"
	log "github.com/sirupsen/logrus"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestRequests(t *testing.T) {
	ctx, can := context.WithCancel(context.Background())
	defer can()
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(log.WarnLevel)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	base := "http://" + ln.Addr().String()

	tally := NewTally(ctx, Config{
		Addr:            ln.Addr().String(),
		ShutdownTimeout: time.Second,
		Metrics:         true,
		SummaryInterval: 50 * time.Millisecond,
		TopN:            3,
		AlertThreshold:  100,
		AlertSpan:       time.Minute,
	}, l)
	tally.Init()

	done := make(chan error, 1)
	go func() {
		done <- tally.serve(ln)
	}()

	for i := 1; i <= 3; i++ {
		code, body := get(t, base+"/")
		if code != http.StatusOK {
			t.Fatalf("status %d", code)
		}
		if exp := fmt.Sprintf("Request number: %d", i); body != exp {
			t.Errorf("body %q, exp: %q", body, exp)
		}
	}

	if _, ok := tally.getAlertState().(traffic.NominalStatus); !ok {
		t.Errorf("status is not nominal: %v", tally.getAlertState())
	}

	l.Info("sending 200 concurrent requests")
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(base + "/api/test")
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	counts := tally.countMap()
	if counts["GET /"] != 3 {
		t.Errorf("GET / tally %d, exp: 3", counts["GET /"])
	}
	if counts["GET /api/test"] != 200 {
		t.Errorf("GET /api/test tally %d, exp: 200", counts["GET /api/test"])
	}

	// The detector flushes and checks every 2s.
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, ok := tally.getAlertState().(traffic.Alert); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status is not alerted: %v", tally.getAlertState())
		}
		time.Sleep(100 * time.Millisecond)
	}

	code, body := get(t, base+"/metrics")
	if code != http.StatusOK || !strings.Contains(body, "tally_counter_value 3") {
		t.Errorf("metrics: %d\n%s", code, body)
	}

	can()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
