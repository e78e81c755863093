package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/governor"
	"github.com/lixenwraith/perfgov/quality"
)

const (
	redrawInterval = 100 * time.Millisecond
	loadStep       = 2 * time.Millisecond
	maxLoad        = 100 * time.Millisecond
	streamSize     = 16 << 20
	recentEvents   = 8
	barWidth       = 30
)

var (
	styleBase   = tcell.StyleDefault.Background(tcell.NewRGBColor(20, 20, 30)).Foreground(tcell.NewRGBColor(200, 200, 200))
	styleHeader = styleBase.Background(tcell.NewRGBColor(40, 50, 70)).Bold(true)
	styleAccent = styleBase.Foreground(tcell.NewRGBColor(100, 200, 220))
	styleWarn   = styleBase.Foreground(tcell.NewRGBColor(255, 180, 100))
	styleGood   = styleBase.Foreground(tcell.NewRGBColor(80, 200, 80))
	styleDim    = styleBase.Foreground(tcell.NewRGBColor(100, 100, 100))
)

// loadSystem burns time inside the tick so the loop sees longer frames
type loadSystem struct {
	load atomic.Int64
}

func (s *loadSystem) Name() string  { return "sandbox-load" }
func (s *loadSystem) Priority() int { return 0 }
func (s *loadSystem) Update(time.Duration) {
	if d := time.Duration(s.load.Load()); d > 0 {
		time.Sleep(d)
	}
}

func (s *loadSystem) adjust(delta time.Duration) time.Duration {
	d := min(max(time.Duration(s.load.Load())+delta, 0), maxLoad)
	s.load.Store(int64(d))
	return d
}

type dashboard struct {
	screen tcell.Screen
	g      *governor.Governor
	load   *loadSystem

	mu       sync.Mutex
	events   []string
	streamed int
	paused   bool
}

func newDashboard(screen tcell.Screen, g *governor.Governor) (*dashboard, func(), error) {
	d := &dashboard{screen: screen, g: g, load: &loadSystem{}}
	g.Engine.AddSystem(d.load)
	unsubscribe, err := g.Bus.SubscribeAll(d.record)
	if err != nil {
		return nil, nil, err
	}
	return d, unsubscribe, nil
}

func runDashboard(g *governor.Governor) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "dashboard panic: %v\n", r)
			os.Exit(1)
		}
	}()
	defer screen.Fini()

	d, unsubscribe, err := newDashboard(screen, g)
	if err != nil {
		return err
	}
	defer unsubscribe()

	eventCh := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventCh <- ev
		}
	}()

	ticker := time.NewTicker(redrawInterval)
	defer ticker.Stop()

	for {
		d.draw()
		screen.Show()

		select {
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if d.handleKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
		}
	}
}

// record keeps a short history of notable events; runs on the tick goroutine
func (d *dashboard) record(ev event.Event) {
	var line string
	switch p := ev.Payload.(type) {
	case *event.TierChangedPayload:
		line = fmt.Sprintf("tier %s -> %s (%s)", p.FromName, p.ToName, p.Reason)
	case *event.RenderScaleChangedPayload:
		line = fmt.Sprintf("scale %.2f -> %.2f", p.OldScale, p.NewScale)
	case *event.MemoryPressurePayload:
		line = fmt.Sprintf("memory %s %s -> %s", p.Scope, p.Previous, p.Level)
	case *event.AssetEvictedPayload:
		line = fmt.Sprintf("evicted %s (%s)", p.ID, formatBytes(p.Size))
	case *event.ReclaimRequestedPayload:
		line = fmt.Sprintf("reclaim after %d evictions", p.Evicted)
	default:
		return
	}
	d.mu.Lock()
	d.events = append(d.events, fmt.Sprintf("#%d %s", ev.Frame, line))
	if len(d.events) > recentEvents {
		d.events = d.events[len(d.events)-recentEvents:]
	}
	d.mu.Unlock()
}

// handleKey applies a key binding and reports whether to quit
func (d *dashboard) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case '1', '2', '3':
		d.g.SetTier(quality.Tier(ev.Rune() - '1'))
	case 'a':
		d.g.SetAdaptive(!d.g.Status().Adaptive)
	case 'p':
		d.mu.Lock()
		d.paused = !d.paused
		paused := d.paused
		d.mu.Unlock()
		if paused {
			d.g.Loop.Pause()
		} else {
			d.g.Loop.Resume()
		}
	case '+', '=':
		d.load.adjust(loadStep)
	case '-':
		d.load.adjust(-loadStep)
	case 'm':
		d.mu.Lock()
		d.streamed++
		id := fmt.Sprintf("sandbox-texture-%03d", d.streamed)
		d.mu.Unlock()
		d.g.Do(func() {
			_ = d.g.Budget.RegisterAsset(id, budget.CategoryTexture, streamSize, false, 0)
		})
	}
	return false
}

func (d *dashboard) draw() {
	r := d.g.Status()
	w, h := d.screen.Size()
	d.screen.Fill(' ', styleBase)

	header := " perfgov sandbox | q quit | 1-3 tier | a adaptive | p pause | +/- load | m stream texture"
	d.text(0, 0, styleHeader, padRight(header, w))

	d.mu.Lock()
	paused := d.paused
	events := append([]string(nil), d.events...)
	d.mu.Unlock()

	y := 2
	line := func(label, value string, style tcell.Style) {
		d.text(2, y, styleDim, padRight(label, 16))
		d.text(18, y, style, value)
		y++
	}

	tierStyle := styleGood
	if r.Tier != quality.TierHigh.String() {
		tierStyle = styleWarn
	}
	line("frame", fmt.Sprint(r.Frame), styleBase)
	line("fps avg", fmt.Sprintf("%.1f (min %.1f, max %.1f)", r.FPS.AverageFPS, r.FPS.MinFPS, r.FPS.MaxFPS), styleAccent)
	line("tier", r.Tier, tierStyle)
	line("render scale", fmt.Sprintf("%.2f", r.RenderScale), styleBase)
	line("adaptive", fmt.Sprint(r.Adaptive), styleBase)
	line("paused", fmt.Sprint(paused), styleBase)
	line("added load", time.Duration(d.load.load.Load()).String(), styleBase)
	line("device class", r.DeviceClass, styleBase)
	y++

	line("lod multiplier", fmt.Sprintf("%.2f", r.LODMultiplier), styleBase)
	line("lod tiers", fmt.Sprint(r.LODTiers), styleBase)
	line("lod cost", fmt.Sprint(r.LODCost), styleBase)
	y++

	for _, c := range r.Memory {
		style := styleGood
		if c.Ratio > d.g.Config.Memory.Warning {
			style = styleWarn
		}
		line(c.Category, fmt.Sprintf("%s %5.1f%% %s", bar(c.Ratio), c.Ratio*100, formatBytes(c.Usage)), style)
	}
	line("pressure", r.Pressure, styleBase)
	y++

	d.text(2, y, styleHeader, padRight(" recent events", w-4))
	y++
	for i := len(events) - 1; i >= 0 && y < h; i-- {
		d.text(2, y, styleBase, events[i])
		y++
	}
}

func (d *dashboard) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func bar(ratio float64) string {
	n := min(max(int(ratio*barWidth+0.5), 0), barWidth)
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", barWidth-n) + "]"
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
