package traffic

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

var _ (Notification) = (*Alert)(nil)
var _ (Notification) = (*NominalStatus)(nil)
var _ (Notification) = (*NilStatus)(nil)

// Notification of AlertDetector state back to caller.
type Notification interface {
	String() string
}

// Alert caller to request limit breach.
type Alert struct {
	Hits int
	TS   time.Time
}

// Alert formats state of alert to caller.
func (a Alert) String() string {
	return fmt.Sprintf("High traffic generated an alert - hits = %d, triggered at %v", a.Hits, a.TS)
}

// NominalStatus returned to caller.
type NominalStatus struct {
	TS time.Time
}

// String formats state information to watcher.
func (s NominalStatus) String() string {
	return fmt.Sprintf("Traffic within nominal parameters - time: %v", s.TS)
}

// NilStatus informs caller that AlertDetector state has exited operation.
type NilStatus struct{}

func (e NilStatus) String() string {
	return fmt.Sprintf("state execution has ended: %v", time.Now())
}

// StateFunc provides clean transitions between
// code execution paths.
type StateFunc func(*AlertDetector) StateFunc

// AlertDetector provides notification when request traffic
// over testSpan breaks the upperLimit.
type AlertDetector struct {
	ctx        context.Context
	monitor    *Monitor
	upperLimit int
	testSpan   time.Duration
	testTicker *time.Ticker
	notify     chan Notification

	localInc atomic.Uint64
	flush    *time.Ticker

	stateMux    sync.Mutex
	activeState StateFunc
}

// NewAlertDetector starts watching for more than alertThreshold requests
// within span. Transitions are sent on notification until ctx is done.
func NewAlertDetector(ctx context.Context, alertThreshold int, span time.Duration, notification chan Notification) *AlertDetector {
	return newAlertDetector(ctx, NewMonitor(span, time.Second), alertThreshold, span, 2*time.Second, notification, Nominal)
}

func newAlertDetector(ctx context.Context, m *Monitor, alertThreshold int, span, interval time.Duration, notification chan Notification, initial StateFunc) *AlertDetector {
	ad := &AlertDetector{
		ctx:        ctx,
		upperLimit: alertThreshold,
		testSpan:   span,
		testTicker: time.NewTicker(interval),
		monitor:    m,
		flush:      time.NewTicker(interval),

		notify:      notification,
		activeState: initial,
	}
	go ad.flushIncrements()
	go ad.runState()
	return ad
}

// Increment aggregates request counts into a concurrency safe
// variable before being flushed to the monitor.
func (a *AlertDetector) Increment(inc int, now time.Time) {
	a.localInc.Add(uint64(inc))
}

// GetState informs caller of AlertDetector's current state.
func (a *AlertDetector) GetState() Notification {
	a.stateMux.Lock()
	state := a.activeState
	a.stateMux.Unlock()

	switch reflect.ValueOf(state).Pointer() {
	case reflect.ValueOf(Nominal).Pointer():
		return NominalStatus{TS: time.Now()}
	case reflect.ValueOf(Alerted).Pointer():
		v := a.monitor.RecentSum(a.testSpan)
		return Alert{TS: time.Now(), Hits: v}
	default:
		return NilStatus{}
	}
}

func (a *AlertDetector) flushIncrements() {
	defer a.flush.Stop()
	for {
		select {
		case <-a.ctx.Done():
			// Context closed, exit incrementing
			return
		case now := <-a.flush.C:
			// Extract the current value, and zero the localInc variable.
			inc := a.localInc.Swap(0)
			if inc > 0 {
				a.monitor.Increment(int(inc), now)
			}
		}
	}
}

// runState operates the alert state transition logic.
func (a *AlertDetector) runState() {
	defer a.testTicker.Stop()
	for {
		a.stateMux.Lock()
		state := a.activeState
		a.stateMux.Unlock()
		if state == nil {
			return
		}
		next := state(a)
		a.stateMux.Lock()
		a.activeState = next
		a.stateMux.Unlock()
	}
}

func (a *AlertDetector) send(n Notification) bool {
	select {
	case <-a.ctx.Done():
		return false
	case a.notify <- n:
		return true
	}
}

// Nominal state tests the monitor time span's request count
// against the upperLimit alerting threshold.
// iff threshold is broken, switch to Alerted state and notify
// output.
func Nominal(a *AlertDetector) StateFunc {
	for {
		select {
		case <-a.ctx.Done():
			return nil
		case now := <-a.testTicker.C:
			v := a.monitor.RecentSum(a.testSpan)
			if v > a.upperLimit { // Alerting threshold triggered
				if !a.send(Alert{TS: now, Hits: v}) {
					return nil
				}
				return Alerted
			}
		}
	}
}

// Alerted state waits for the request count to come back
// within the upperLimit, then returns to Nominal and notifies output.
func Alerted(a *AlertDetector) StateFunc {
	for {
		select {
		case <-a.ctx.Done():
			return nil
		case now := <-a.testTicker.C:
			v := a.monitor.RecentSum(a.testSpan)
			if v <= a.upperLimit {
				if !a.send(NominalStatus{TS: now}) {
					return nil
				}
				return Nominal
			}
		}
	}
}
