// Package cmd contains the core application logic and goroutine launch points.
package cmd

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ropes/tally/pkg/counter"
	"github.com/ropes/tally/pkg/events"
	"github.com/ropes/tally/pkg/metrics"
	"github.com/ropes/tally/pkg/server"
	"github.com/ropes/tally/pkg/traffic"
	log "github.com/sirupsen/logrus"
)

// Config is everything tally serve reads from flags, env and file.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Metrics         bool
	SummaryInterval time.Duration
	TopN            int
	KafkaBrokers    []string
	KafkaTopic      string
	AlertThreshold  int
	AlertSpan       time.Duration
}

// Tally app: one counter shared by every request for the process lifetime.
type Tally struct {
	ctx    context.Context
	logger *log.Logger
	cfg    Config

	counter   *counter.Counter
	rc        *traffic.RequestCounter
	metrics   *metrics.Metrics
	publisher *events.Publisher
	ad        *traffic.AlertDetector
	handler   http.Handler
}

func NewTally(ctx context.Context, cfg Config, logger *log.Logger) *Tally {
	return &Tally{
		ctx:    ctx,
		logger: logger,
		cfg:    cfg,
	}
}

// Init builds the counter and everything that observes it.
func (t *Tally) Init() {
	t.counter = counter.New()
	t.rc = new(traffic.RequestCounter)

	opts := []server.Option{
		server.WithLogger(t.logger),
		server.WithTally(t.rc),
	}
	if t.cfg.Metrics {
		t.metrics = metrics.New(t.counter)
		opts = append(opts, server.WithMetrics(t.metrics))
	}
	if len(t.cfg.KafkaBrokers) > 0 {
		t.publisher = events.NewPublisher(t.cfg.KafkaBrokers, t.cfg.KafkaTopic, t.logger)
		opts = append(opts, server.WithNotifier(t.publisher))
		t.logger.WithFields(log.Fields{"brokers": t.cfg.KafkaBrokers, "topic": t.cfg.KafkaTopic}).
			Info("publishing counter events")
	}
	if t.cfg.AlertThreshold > 0 {
		notifications := make(chan traffic.Notification, 1)
		t.ad = traffic.NewAlertDetector(t.ctx, t.cfg.AlertThreshold, t.cfg.AlertSpan, notifications)
		opts = append(opts, server.WithRate(t.ad))
		go t.reportAlerts(notifications)
	}
	t.handler = server.Routes(t.counter, opts...)

	if t.cfg.SummaryInterval > 0 {
		go t.summarize(t.cfg.SummaryInterval)
	}
}

// Run serves on the configured address until the app context is done.
func (t *Tally) Run() error {
	defer t.close()
	return t.newServer().Run(t.ctx)
}

func (t *Tally) serve(l net.Listener) error {
	defer t.close()
	return t.newServer().Serve(t.ctx, l)
}

func (t *Tally) newServer() *server.Server {
	return server.New(server.Config{
		Addr:            t.cfg.Addr,
		ShutdownTimeout: t.cfg.ShutdownTimeout,
	}, t.handler, t.logger)
}

func (t *Tally) close() {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Close(); err != nil {
		t.logger.WithFields(log.Fields{"err": err}).Warn("closing counter event publisher")
	}
}

// summarize logs the busiest routes every interval.
func (t *Tally) summarize(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-tick.C:
			f := summaryFields(t.countMap(), t.cfg.TopN)
			if v, err := t.counter.Value(); err == nil {
				f["counter"] = v
			} else {
				f["err"] = err
			}
			t.logger.WithFields(f).Infof("Top %d routes", t.cfg.TopN)
		}
	}
}

func (t *Tally) reportAlerts(notifications <-chan traffic.Notification) {
	for {
		select {
		case <-t.ctx.Done():
			return
		case n := <-notifications:
			switch n.(type) {
			case traffic.Alert:
				t.logger.Warnf("RequestRate Notification: %q", n.String())
			default:
				t.logger.Infof("RequestRate Notification: %q", n.String())
			}
		}
	}
}

func (t *Tally) getAlertState() traffic.Notification {
	return t.ad.GetState()
}

func (t *Tally) countMap() map[string]uint64 {
	return t.rc.Export()
}
