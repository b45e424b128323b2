package wm

import (
	"testing"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/shell"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/wire"
)

// recordingSink keeps configures so tests can complete handshakes and
// assert on what was requested
type recordingSink struct {
	wire.LogSink
	configures []sinkConfigure
	closed     []wire.SurfaceID
}

type sinkConfigure struct {
	surface wire.SurfaceID
	serial  uint32
	size    generaldata.Vector2i
	states  wire.WindowState
}

func (r *recordingSink) Configure(surface wire.SurfaceID, serial uint32, size generaldata.Vector2i, states wire.WindowState) {
	r.configures = append(r.configures, sinkConfigure{surface, serial, size, states})
}

func (r *recordingSink) Closed(surface wire.SurfaceID) {
	r.closed = append(r.closed, surface)
}

func (r *recordingSink) lastFor(t *testing.T, id wire.SurfaceID) sinkConfigure {
	t.Helper()
	for i := len(r.configures) - 1; i >= 0; i-- {
		if r.configures[i].surface == id {
			return r.configures[i]
		}
	}
	t.Fatalf("No configure was sent to surface %d", id)
	return sinkConfigure{}
}

type fixture struct {
	reg    *surface.Registry
	sh     *shell.Shell
	sink   *recordingSink
	layout *output.Layout
	m      *Manager
}

func newFixture() *fixture {
	sink := &recordingSink{}
	reg := surface.NewRegistry(surface.BufferCaps{})
	sh := shell.NewShell(reg, sink)
	layout := output.NewLayout()
	layout.AddAuto("virt-a", output.Mode{Size: generaldata.Vector2i{X: 1000, Y: 800}}, nil, 1)
	return &fixture{
		reg:    reg,
		sh:     sh,
		sink:   sink,
		layout: layout,
		m:      NewManager(sh, layout),
	}
}

// mapWindow runs the toplevel handshake to mapped
func (f *fixture) mapWindow(t *testing.T) *shell.Window {
	t.Helper()
	s := f.reg.Create(1)
	w, err := f.sh.CreateToplevel(s.ID())
	if err != nil {
		t.Fatalf("CreateToplevel failed: %s", err)
	}
	f.reg.Commit(s.ID())
	f.ackAndCommit(t, s.ID(), generaldata.Vector2i{X: 400, Y: 300})
	if !w.Mapped() {
		t.Fatalf("Window not mapped, state %s", w.State())
	}
	return w
}

// ackAndCommit acks the newest configure for the surface and commits a
// matching buffer
func (f *fixture) ackAndCommit(t *testing.T, id wire.SurfaceID, fallback generaldata.Vector2i) {
	t.Helper()
	cfg := f.sink.lastFor(t, id)
	size := cfg.size
	if size == (generaldata.Vector2i{}) {
		size = fallback
	}
	if err := f.sh.Ack(id, cfg.serial); err != nil {
		t.Fatalf("Ack failed: %s", err)
	}
	f.reg.AttachBuffer(id, &wire.Buffer{Handle: 1, Format: wire.FormatARGB8888, Size: size})
	f.reg.Commit(id)
}

func (f *fixture) unmap(t *testing.T, w *shell.Window) {
	t.Helper()
	f.reg.AttachBuffer(w.Surface(), nil)
	f.reg.Commit(w.Surface())
	if w.Mapped() {
		t.Fatalf("Window still mapped after null buffer commit")
	}
}

func TestActivateSwitchesAndRaises(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	b := f.mapWindow(t)

	f.m.Activate(a)
	if f.m.Active() != a {
		t.Fatalf("Active is not the activated window")
	}
	if !a.Activated() {
		t.Errorf("Activated flag not set")
	}
	if top := f.sh.MappedTopDown(); top[0] != a {
		t.Errorf("Activated window was not raised")
	}

	f.m.Activate(b)
	if a.Activated() {
		t.Errorf("Previous window still flagged activated")
	}
	if !b.Activated() || f.m.Active() != b {
		t.Errorf("Activation did not move")
	}
}

func TestActivateNilClears(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	f.m.Activate(a)
	f.m.Activate(nil)
	if f.m.Active() != nil {
		t.Errorf("Active not cleared")
	}
	if a.Activated() {
		t.Errorf("Window still flagged activated")
	}
}

func TestNextCyclesStack(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	b := f.mapWindow(t)
	c := f.mapWindow(t)

	f.m.Activate(c)
	f.m.Next()
	if f.m.Active() != a {
		t.Fatalf("Next did not pull up the bottom of the stack")
	}
	f.m.Next()
	if f.m.Active() != b {
		t.Fatalf("Second Next skipped a window")
	}
	f.m.Next()
	if f.m.Active() != c {
		t.Fatalf("Third Next did not complete the cycle")
	}
}

func TestNextWithoutActive(t *testing.T) {
	f := newFixture()
	f.m.Next()
	if f.m.Active() != nil {
		t.Errorf("Next on empty stack produced an active window")
	}

	a := f.mapWindow(t)
	f.m.Next()
	if f.m.Active() != a {
		t.Errorf("Next did not pick the topmost window")
	}
}

func TestPrunePromotesTopmost(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	b := f.mapWindow(t)
	f.m.Activate(b)

	f.unmap(t, b)
	f.m.Prune()
	if f.m.Active() != a {
		t.Fatalf("Dead active window was not replaced by the topmost survivor")
	}
	if !a.Activated() {
		t.Errorf("Promoted window not flagged activated")
	}
}

func TestPruneToEmpty(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	f.m.Activate(a)
	f.unmap(t, a)
	f.m.Prune()
	if f.m.Active() != nil {
		t.Errorf("Active survived with no mapped windows left")
	}
}

func TestInteractiveArrangement(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	b := f.mapWindow(t)
	f.m.Activate(b)

	f.m.SetMode(ModeInteractive)
	cfg := f.sink.lastFor(t, b.Surface())
	if cfg.states&wire.StateFullscreen == 0 {
		t.Fatalf("Active window was not sent a fullscreen configure")
	}
	if cfg.size != (generaldata.Vector2i{X: 1000, Y: 800}) {
		t.Errorf("Fullscreen configure size %+v, want the whole output", cfg.size)
	}

	f.ackAndCommit(t, b.Surface(), cfg.size)
	if b.Mode() != shell.ModeFullscreen {
		t.Errorf("Active window mode %s after handshake", b.Mode())
	}
	if a.Mode() != shell.ModeNormal {
		t.Errorf("Inactive window left normal mode")
	}
}

func TestInteractiveFollowsActivation(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	b := f.mapWindow(t)
	f.m.Activate(b)
	f.m.SetMode(ModeInteractive)
	f.ackAndCommit(t, b.Surface(), generaldata.Vector2i{})

	// Switching activation moves the fullscreen to the new active
	// window and returns the old one to normal
	f.m.Activate(a)
	aCfg := f.sink.lastFor(t, a.Surface())
	if aCfg.states&wire.StateFullscreen == 0 {
		t.Errorf("New active window not configured fullscreen")
	}
	bCfg := f.sink.lastFor(t, b.Surface())
	if bCfg.states&wire.StateFullscreen != 0 {
		t.Errorf("Old active window still configured fullscreen")
	}
}

func TestPreviewArrangement(t *testing.T) {
	f := newFixture()
	a := f.mapWindow(t)
	b := f.mapWindow(t)

	f.m.SetMode(ModePreview)

	slots := f.m.Slots(2)
	if len(slots) != 2 {
		t.Fatalf("Got %d slots", len(slots))
	}
	wantW := (1000 - previewPadding*3) / 2
	wantH := 800 - previewPadding*2
	want0 := generaldata.NewRect(previewPadding, previewPadding, wantW, wantH)
	want1 := generaldata.NewRect(previewPadding*2+wantW, previewPadding, wantW, wantH)
	if slots[0] != want0 || slots[1] != want1 {
		t.Errorf("Slots %+v, want %+v and %+v", slots, want0, want1)
	}

	// Oldest window gets the left slot
	aCfg := f.sink.lastFor(t, a.Surface())
	if aCfg.size != want0.Size {
		t.Errorf("First window configured to %+v, want %+v", aCfg.size, want0.Size)
	}
	bCfg := f.sink.lastFor(t, b.Surface())
	if bCfg.size != want1.Size {
		t.Errorf("Second window configured to %+v, want %+v", bCfg.size, want1.Size)
	}
}

func TestPreviewWithoutWindows(t *testing.T) {
	f := newFixture()
	before := len(f.sink.configures)
	f.m.SetMode(ModePreview)
	if len(f.sink.configures) != before {
		t.Errorf("Preview with no windows sent configures")
	}
	if f.m.Slots(0) != nil {
		t.Errorf("Slots for zero windows")
	}
}

func TestFloatingRestoresModes(t *testing.T) {
	f := newFixture()
	b := f.mapWindow(t)
	f.m.Activate(b)
	f.m.SetMode(ModeInteractive)
	f.ackAndCommit(t, b.Surface(), generaldata.Vector2i{})
	if b.Mode() != shell.ModeFullscreen {
		t.Fatalf("Window not fullscreen before the switch")
	}

	f.m.SetMode(ModeFloating)
	cfg := f.sink.lastFor(t, b.Surface())
	if cfg.states&wire.StateFullscreen != 0 {
		t.Fatalf("Floating switch left the fullscreen state set")
	}
	f.ackAndCommit(t, b.Surface(), generaldata.Vector2i{X: 400, Y: 300})
	if b.Mode() != shell.ModeNormal {
		t.Errorf("Window mode %s after restore", b.Mode())
	}
}

func TestModeString(t *testing.T) {
	if ModeFloating.String() != "floating" || ModePreview.String() != "preview" {
		t.Errorf("Mode names wrong")
	}
	if Mode(42).String() != "invalid" {
		t.Errorf("Unknown mode name wrong")
	}
}
