// Package virtual is the windowed development backend: one or more
// virtual outputs backed by nothing, a tick driven frame clock and an
// injector for input events. The whole engine runs against it in
// tests and on machines without DRM access.
package virtual

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/aurorawm/aurora/backend"
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/util/multiplexer"
	"github.com/aurorawm/aurora/wire"
)

// OutputConfig describes one virtual display
type OutputConfig struct {
	Name       string
	Width      int
	Height     int
	RefreshMHz int
	Scale      float64
}

// DefaultOutput is what you get when no output is configured
var DefaultOutput = OutputConfig{
	Name:       "virtual-1",
	Width:      1920,
	Height:     1080,
	RefreshMHz: 60000,
	Scale:      1,
}

type virtualOutput struct {
	cfg     OutputConfig
	modeset bool
	inFrame *target
	// Successful presents, for tests and the inspect command
	presented   int
	failPresent int
}

type target struct {
	size generaldata.Vector2i
}

func (t *target) Size() generaldata.Vector2i { return t.size }

// Backend implements backend.Backend without any hardware behind it
type Backend struct {
	mu      sync.Mutex
	events  chan backend.Event
	plexer  *multiplexer.ManyToOne[backend.Event]
	outputs map[string]*virtualOutput
	pool    []*target

	// Zero disables the internal frame clock; tests drive Tick directly
	frameInterval time.Duration
	stop          chan struct{}
	started       bool
}

func New(frameInterval time.Duration, outputs ...OutputConfig) *Backend {
	if len(outputs) == 0 {
		outputs = []OutputConfig{DefaultOutput}
	}
	events := make(chan backend.Event, 256)
	b := &Backend{
		events:        events,
		plexer:        multiplexer.NewManyToOne(events),
		outputs:       make(map[string]*virtualOutput),
		frameInterval: frameInterval,
		stop:          make(chan struct{}),
	}
	for _, cfg := range outputs {
		b.outputs[cfg.Name] = &virtualOutput{cfg: cfg}
	}
	return b
}

func (b *Backend) Start() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	cfgs := make([]OutputConfig, 0, len(b.outputs))
	for _, o := range b.outputs {
		cfgs = append(cfgs, o.cfg)
	}
	b.mu.Unlock()

	for _, cfg := range cfgs {
		b.plexer.Send(backend.OutputAdded{
			Name:  cfg.Name,
			Mode:  mode(cfg),
			Modes: []output.Mode{mode(cfg)},
			Scale: cfg.Scale,
		})
	}
	if b.frameInterval > 0 {
		go b.frameClock()
	}
	logrus.WithField("outputs", len(cfgs)).Debugln("Virtual backend started")
	return nil
}

func mode(cfg OutputConfig) output.Mode {
	return output.Mode{
		Size:       generaldata.Vector2i{X: cfg.Width, Y: cfg.Height},
		RefreshMHz: cfg.RefreshMHz,
		Preferred:  true,
	}
}

func (b *Backend) frameClock() {
	tick := time.NewTicker(b.frameInterval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			b.Tick()
		case <-b.stop:
			return
		}
	}
}

// Tick emits one frame event per output, in place of a hardware vblank
func (b *Backend) Tick() {
	b.mu.Lock()
	names := make([]string, 0, len(b.outputs))
	for name := range b.outputs {
		names = append(names, name)
	}
	b.mu.Unlock()
	for _, name := range names {
		b.plexer.TrySend(backend.Frame{Name: name})
	}
}

// Inject feeds a device event into the stream, from tests or the repl
func (b *Backend) Inject(ev backend.Event) {
	b.plexer.Send(ev)
}

// AddOutput simulates a hot plug
func (b *Backend) AddOutput(cfg OutputConfig) {
	b.mu.Lock()
	b.outputs[cfg.Name] = &virtualOutput{cfg: cfg}
	b.mu.Unlock()
	b.plexer.Send(backend.OutputAdded{
		Name:  cfg.Name,
		Mode:  mode(cfg),
		Modes: []output.Mode{mode(cfg)},
		Scale: cfg.Scale,
	})
}

// RemoveOutput simulates a hot unplug
func (b *Backend) RemoveOutput(name string) {
	b.mu.Lock()
	delete(b.outputs, name)
	b.mu.Unlock()
	b.plexer.Send(backend.OutputRemoved{Name: name})
}

// SetModeset toggles the mid-modeset condition under which BeginFrame
// answers ErrOutputNotReady
func (b *Backend) SetModeset(name string, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.outputs[name]; ok {
		o.modeset = active
	}
}

// FailNextPresent makes the next present on the output fail once, for
// exercising the damage retention path
func (b *Backend) FailNextPresent(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.outputs[name]; ok {
		o.failPresent++
	}
}

// Presented returns how many frames the output has shown
func (b *Backend) Presented(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.outputs[name]; ok {
		return o.presented
	}
	return 0
}

func (b *Backend) Events() <-chan backend.Event {
	return b.events
}

func (b *Backend) Caps() surface.BufferCaps {
	return surface.BufferCaps{
		Formats: []wire.PixelFormat{wire.FormatARGB8888, wire.FormatXRGB8888},
		MaxSize: generaldata.Vector2i{X: 16384, Y: 16384},
	}
}

func (b *Backend) BeginFrame(name string) (backend.RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.outputs[name]
	if !ok {
		return nil, errors.Wrapf(backend.ErrFatal, "output %s is gone", name)
	}
	if o.modeset {
		return nil, errors.Wrapf(backend.ErrOutputNotReady, "output %s is mid modeset", name)
	}
	size := generaldata.Vector2i{X: o.cfg.Width, Y: o.cfg.Height}
	var t *target
	for i, pooled := range b.pool {
		if pooled.size == size {
			t = pooled
			b.pool = append(b.pool[:i], b.pool[i+1:]...)
			break
		}
	}
	if t == nil {
		t = &target{size: size}
	}
	o.inFrame = t
	return t, nil
}

func (b *Backend) Present(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.outputs[name]
	if !ok {
		return errors.Wrapf(backend.ErrFatal, "output %s is gone", name)
	}
	if o.inFrame == nil {
		return errors.Wrapf(backend.ErrTransient, "present without begun frame on %s", name)
	}
	// Target goes back to the pool; nothing holds it across ticks
	b.pool = append(b.pool, o.inFrame)
	o.inFrame = nil
	if o.failPresent > 0 {
		o.failPresent--
		return errors.Wrapf(backend.ErrTransient, "simulated present failure on %s", name)
	}
	o.presented++
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	started := b.started
	b.started = false
	b.mu.Unlock()
	if started {
		close(b.stop)
	}
	b.plexer.Close()
	return nil
}
