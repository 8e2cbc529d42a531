package view

import (
	"context"
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// Poller produces a fresh Snapshot.
type Poller func(ctx context.Context) (Snapshot, error)

// Dashboard is the set of widgets shown by tally watch.
type Dashboard struct {
	target string
	status *widgets.List
	routes *widgets.List
	events *widgets.List
	n      int
}

// Init takes over the terminal and lays out the widgets.
func Init(target string) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	status := widgets.NewList()
	status.Title = "Request Counter"
	status.Rows = statusRows(target, Snapshot{})
	status.TextStyle = ui.NewStyle(ui.ColorYellow)

	routes := widgets.NewList()
	routes.Title = "Requests by Route"
	routes.Rows = []string{}
	routes.TextStyle = ui.NewStyle(ui.ColorBlue)
	routes.WrapText = false

	events := widgets.NewList()
	events.Title = "Scrape Log"
	events.Rows = []string{}
	events.TextStyle = ui.NewStyle(ui.ColorRed)
	events.WrapText = true

	d := &Dashboard{
		target: target,
		status: status,
		routes: routes,
		events: events,
	}
	d.resize(ui.TerminalDimensions())
	d.render()
	return d, nil
}

// Update shows s.
func (d *Dashboard) Update(s Snapshot) {
	d.status.Rows = statusRows(d.target, s)
	d.routes.Rows = routeRows(s)
}

// Logf appends a line to the scrape log.
func (d *Dashboard) Logf(format string, args ...interface{}) {
	d.n++
	line := fmt.Sprintf("[%d] %s %s", d.n, time.Now().Format(time.TimeOnly), fmt.Sprintf(format, args...))
	d.events.Rows = append(d.events.Rows, line)
}

func (d *Dashboard) render() {
	ui.Render(d.status, d.routes, d.events)
}

func (d *Dashboard) poll(ctx context.Context, p Poller) {
	s, err := p(ctx)
	if err != nil {
		d.Logf("%v", err)
		return
	}
	d.Update(s)
}

// Run polls every interval and handles key presses until ctx is done or
// the user quits, in which case can is called.
func (d *Dashboard) Run(ctx context.Context, can context.CancelFunc, interval time.Duration, p Poller) {
	defer ui.Close()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	d.poll(ctx, p)
	d.render()

	// Scrape log scrolling hooks
	previousKey := ""
	uiEvents := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			d.poll(ctx, p)
		case e := <-uiEvents:
			scrollable := len(d.events.Rows) > 0
			switch e.ID {
			case "q", "<C-c>":
				can()
				return
			case "j", "<Down>":
				if scrollable {
					d.events.ScrollDown()
				}
			case "k", "<Up>":
				if scrollable {
					d.events.ScrollUp()
				}
			case "<C-d>":
				if scrollable {
					d.events.ScrollHalfPageDown()
				}
			case "<C-u>":
				if scrollable {
					d.events.ScrollHalfPageUp()
				}
			case "g":
				if previousKey == "g" && scrollable {
					d.events.ScrollTop()
				}
			case "<Home>":
				if scrollable {
					d.events.ScrollTop()
				}
			case "G", "<End>":
				if scrollable {
					d.events.ScrollBottom()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.resize(payload.Width, payload.Height)
				ui.Clear()
			}

			if previousKey == "g" {
				previousKey = ""
			} else {
				previousKey = e.ID
			}
		}
		d.render()
	}
}

// resize lays the status and route lists side by side above the scrape log.
func (d *Dashboard) resize(maxX, maxY int) {
	const top = 10
	split := maxX / 3
	d.status.SetRect(0, 0, split, top)
	d.routes.SetRect(split+1, 0, maxX, top)
	d.events.SetRect(0, top+1, maxX, maxY)
}
