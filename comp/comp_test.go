package comp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorawm/aurora/backend"
	"github.com/aurorawm/aurora/backend/virtual"
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/shell"
	"github.com/aurorawm/aurora/wire"
	"github.com/aurorawm/aurora/wm"
)

// recordingSink collects protocol events so tests can complete
// configure handshakes and assert on what clients would see
type recordingSink struct {
	wire.LogSink
	configures []sinkConfigure
	popupCfgs  []sinkPopupConfigure
	closed     []wire.SurfaceID
	popupDone  []wire.SurfaceID
	keys       []uint32
}

type sinkConfigure struct {
	surface wire.SurfaceID
	serial  uint32
	size    generaldata.Vector2i
	states  wire.WindowState
}

type sinkPopupConfigure struct {
	surface wire.SurfaceID
	serial  uint32
	rect    generaldata.Rect
}

func (r *recordingSink) Configure(surface wire.SurfaceID, serial uint32, size generaldata.Vector2i, states wire.WindowState) {
	r.configures = append(r.configures, sinkConfigure{surface, serial, size, states})
}

func (r *recordingSink) PopupConfigure(surface wire.SurfaceID, serial uint32, rect generaldata.Rect) {
	r.popupCfgs = append(r.popupCfgs, sinkPopupConfigure{surface, serial, rect})
}

func (r *recordingSink) Closed(surface wire.SurfaceID) {
	r.closed = append(r.closed, surface)
}

func (r *recordingSink) PopupDone(surface wire.SurfaceID) {
	r.popupDone = append(r.popupDone, surface)
}

func (r *recordingSink) KeyboardKey(surface wire.SurfaceID, time uint32, key uint32, state wire.KeyState) {
	r.keys = append(r.keys, key)
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
	t       *testing.T
	backend *virtual.Backend
	rec     *virtual.Recorder
	sink    *recordingSink
	server  *Server
}

// newFixture starts a virtual backend and feeds its announcement burst
// through the event handler, outside of Run
func newFixture(t *testing.T, outputs ...virtual.OutputConfig) *fixture {
	t.Helper()
	b := virtual.New(0, outputs...)
	rec := virtual.NewRecorder()
	sink := &recordingSink{}
	s := NewServer(b, rec, sink)
	require.NoError(t, b.Start())
	t.Cleanup(func() { b.Close() })
	f := &fixture{t: t, backend: b, rec: rec, sink: sink, server: s}
	f.drain()
	return f
}

// drain pushes every queued backend event through the loop's handler
func (f *fixture) drain() {
	for {
		select {
		case ev, ok := <-f.backend.Events():
			if !ok {
				return
			}
			f.server.handleEvent(ev)
		default:
			return
		}
	}
}

func (f *fixture) dispatch(req wire.Request) error {
	return f.server.dispatch(req)
}

// mapToplevel drives the whole handshake through the request dispatch
func (f *fixture) mapToplevel(client wire.ClientID) wire.SurfaceID {
	f.t.Helper()
	sf := f.server.reg.Create(client)
	id := sf.ID()
	base := wire.Base{From: client}
	require.NoError(f.t, f.dispatch(wire.SetToplevelRole{Base: base, Surface: id}))
	require.NoError(f.t, f.dispatch(wire.Commit{Base: base, Surface: id}))

	cfg := f.sink.lastFor(f.t, id)
	require.NoError(f.t, f.dispatch(wire.AckConfigure{Base: base, Surface: id, Serial: cfg.serial}))
	require.NoError(f.t, f.dispatch(wire.AttachBuffer{Base: base, Surface: id, Buffer: &wire.Buffer{
		Handle: 1,
		Format: wire.FormatARGB8888,
		Size:   generaldata.Vector2i{X: 400, Y: 300},
	}}))
	require.NoError(f.t, f.dispatch(wire.Commit{Base: base, Surface: id}))

	w, ok := f.server.shell.Window(id)
	require.True(f.t, ok)
	require.True(f.t, w.Mapped(), "window did not map")
	return id
}

func (f *fixture) mapPopup(client wire.ClientID, parent wire.SurfaceID, anchor generaldata.Rect) wire.SurfaceID {
	f.t.Helper()
	sf := f.server.reg.Create(client)
	id := sf.ID()
	base := wire.Base{From: client}
	require.NoError(f.t, f.dispatch(wire.SetPopupRole{Base: base, Surface: id, Parent: parent, Anchor: anchor}))

	require.NotEmpty(f.t, f.sink.popupCfgs)
	cfg := f.sink.popupCfgs[len(f.sink.popupCfgs)-1]
	require.Equal(f.t, id, cfg.surface)
	require.NoError(f.t, f.dispatch(wire.AckConfigure{Base: base, Surface: id, Serial: cfg.serial}))
	require.NoError(f.t, f.dispatch(wire.AttachBuffer{Base: base, Surface: id, Buffer: &wire.Buffer{
		Handle: 2,
		Format: wire.FormatARGB8888,
		Size:   cfg.rect.Size,
	}}))
	require.NoError(f.t, f.dispatch(wire.Commit{Base: base, Surface: id}))

	p, ok := f.server.shell.Popup(id)
	require.True(f.t, ok)
	require.True(f.t, p.Mapped(), "popup did not map")
	return id
}

func testOutput() virtual.OutputConfig {
	return virtual.OutputConfig{Name: "virt-a", Width: 1000, Height: 800, RefreshMHz: 60000, Scale: 1}
}

func TestStartupAddsOutputs(t *testing.T) {
	f := newFixture(t, testOutput())
	out := f.server.layout.ByName("virt-a")
	require.NotNil(t, out)
	assert.Equal(t, generaldata.NewRect(0, 0, 1000, 800), out.Geometry())
	assert.True(t, out.Dirty(), "fresh output should start fully damaged")
}

// A request on another client's surface costs the offender its
// connection; the victim is untouched
func TestProtocolViolationContainment(t *testing.T) {
	f := newFixture(t, testOutput())
	victim := f.mapToplevel(1)
	offender := f.mapToplevel(2)

	f.server.handleRequest(wire.Commit{Base: wire.Base{From: 2}, Surface: victim})

	_, ok := f.server.reg.Get(offender)
	assert.False(t, ok, "offending client's surface survived")
	_, ok = f.server.reg.Get(victim)
	require.True(t, ok, "victim's surface was destroyed")
	w, _ := f.server.shell.Window(victim)
	assert.True(t, w.Mapped())

	// Activation falls back to the survivor
	require.NotNil(t, f.server.wm.Active())
	assert.Equal(t, victim, f.server.wm.Active().Surface())
}

func TestUnknownRequestIsViolation(t *testing.T) {
	type bogus struct{ wire.Base }
	f := newFixture(t, testOutput())
	err := f.dispatch(bogus{wire.Base{From: 1}})
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestUnknownSurfaceIsViolation(t *testing.T) {
	f := newFixture(t, testOutput())
	err := f.dispatch(wire.Commit{Base: wire.Base{From: 1}, Surface: 999})
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestFrameRendersAndClearsDamage(t *testing.T) {
	f := newFixture(t, testOutput())
	id := f.mapToplevel(1)
	out := f.server.layout.ByName("virt-a")
	require.True(t, out.Dirty())

	f.server.handleEvent(backend.Frame{Name: "virt-a"})
	assert.False(t, out.Dirty(), "damage not cleared after presented frame")
	assert.Equal(t, 1, f.backend.Presented("virt-a"))

	pass, ok := f.rec.Last()
	require.True(t, ok)
	assert.Equal(t, generaldata.Vector2i{X: 1000, Y: 800}, pass.TargetSize)
	require.Len(t, pass.Items, 1)
	w, _ := f.server.shell.Window(id)
	assert.Equal(t, w.Geometry(), pass.Items[0].Dst)

	// A clean output produces no further passes
	f.server.handleEvent(backend.Frame{Name: "virt-a"})
	assert.Len(t, f.rec.Passes(), 1)
	assert.Equal(t, 1, f.backend.Presented("virt-a"))
}

func TestFailedPresentRetainsDamage(t *testing.T) {
	f := newFixture(t, testOutput())
	f.mapToplevel(1)
	out := f.server.layout.ByName("virt-a")

	f.backend.FailNextPresent("virt-a")
	f.server.handleEvent(backend.Frame{Name: "virt-a"})
	assert.True(t, out.Dirty(), "damage cleared despite failed present")
	assert.Equal(t, 0, f.backend.Presented("virt-a"))

	// Retry on the next frame succeeds and clears
	f.server.handleEvent(backend.Frame{Name: "virt-a"})
	assert.False(t, out.Dirty())
	assert.Equal(t, 1, f.backend.Presented("virt-a"))
}

func TestModesetDefersFrame(t *testing.T) {
	f := newFixture(t, testOutput())
	f.mapToplevel(1)
	out := f.server.layout.ByName("virt-a")

	f.backend.SetModeset("virt-a", true)
	f.server.handleEvent(backend.Frame{Name: "virt-a"})
	assert.True(t, out.Dirty())
	require.NotNil(t, f.server.layout.ByName("virt-a"), "transient failure removed the output")

	f.backend.SetModeset("virt-a", false)
	f.server.handleEvent(backend.Frame{Name: "virt-a"})
	assert.False(t, out.Dirty())
}

// A fatal frame error is treated like a hot unplug
func TestFatalFrameRemovesOutput(t *testing.T) {
	f := newFixture(t, testOutput())
	id := f.mapToplevel(1)

	// Pull the output out from under the engine without delivering the
	// removal event; the frame error carries the news instead
	f.backend.RemoveOutput("virt-a")
	f.server.handleEvent(backend.Frame{Name: "virt-a"})

	assert.Nil(t, f.server.layout.ByName("virt-a"))
	assert.Contains(t, f.sink.closed, id, "window not closed with no output left")
}

func TestHotUnplugMigratesWindow(t *testing.T) {
	f := newFixture(t,
		virtual.OutputConfig{Name: "virt-a", Width: 1000, Height: 800, Scale: 1},
		virtual.OutputConfig{Name: "virt-b", Width: 1000, Height: 800, Scale: 1},
	)
	id := f.mapToplevel(1)
	w, _ := f.server.shell.Window(id)

	// Park the window fully on virt-b, wherever the layout put it
	bGeo := f.server.layout.ByName("virt-b").Geometry()
	w.MoveTo(generaldata.Vector2i{X: bGeo.Pos.X + 10, Y: bGeo.Pos.Y + 10})

	f.backend.RemoveOutput("virt-b")
	f.drain()

	assert.Nil(t, f.server.layout.ByName("virt-b"))
	require.True(t, w.Mapped(), "window should survive by migrating")
	aGeo := f.server.layout.ByName("virt-a").Geometry()
	assert.True(t, w.Geometry().Intersects(aGeo), "window not moved onto the remaining output")
	assert.Empty(t, f.sink.closed)
}

func TestHotUnplugLastOutputCloses(t *testing.T) {
	f := newFixture(t, testOutput())
	id := f.mapToplevel(1)

	f.backend.RemoveOutput("virt-a")
	f.drain()

	assert.Contains(t, f.sink.closed, id)
	w, _ := f.server.shell.Window(id)
	assert.False(t, w.Mapped())
}

func TestPressActivatesWindow(t *testing.T) {
	f := newFixture(t, testOutput())
	first := f.mapToplevel(1)
	second := f.mapToplevel(1)
	w1, _ := f.server.shell.Window(first)
	w2, _ := f.server.shell.Window(second)
	w1.MoveTo(generaldata.Vector2i{X: 0, Y: 0})
	w2.MoveTo(generaldata.Vector2i{X: 500, Y: 0})

	// Mapping order left the second window active
	require.Equal(t, second, f.server.wm.Active().Surface())

	f.server.handleEvent(backend.PointerMotionAbsolute{X: 100, Y: 100})
	f.server.handleEvent(backend.PointerButton{Button: 0x110, State: wire.ButtonPressed})

	assert.Equal(t, first, f.server.wm.Active().Surface())
	assert.Equal(t, first, f.server.seat.KeyboardFocus())
	assert.Equal(t, first, f.server.shell.MappedTopDown()[0].Surface())
}

func TestOutsidePressBreaksGrab(t *testing.T) {
	f := newFixture(t, testOutput())
	parent := f.mapToplevel(1)
	w, _ := f.server.shell.Window(parent)
	w.MoveTo(generaldata.Vector2i{X: 0, Y: 0})

	popup := f.mapPopup(1, parent, generaldata.NewRect(100, 100, 10, 10))
	require.NoError(t, f.dispatch(wire.GrabPopup{Base: wire.Base{From: 1}, Surface: popup, Serial: 1}))
	require.True(t, f.server.shell.GrabActive())

	// Press inside the popup keeps the grab
	rect := f.server.shell.PopupGlobalRect(mustPopup(t, f, popup))
	f.server.handleEvent(backend.PointerMotionAbsolute{
		X: float64(rect.Pos.X) + 1,
		Y: float64(rect.Pos.Y) + 1,
	})
	f.server.handleEvent(backend.PointerButton{Button: 0x110, State: wire.ButtonPressed})
	assert.True(t, f.server.shell.GrabActive())

	// Press on the parent breaks it
	f.server.handleEvent(backend.PointerMotionAbsolute{X: 10, Y: 10})
	f.server.handleEvent(backend.PointerButton{Button: 0x110, State: wire.ButtonPressed})
	assert.False(t, f.server.shell.GrabActive())
	assert.Contains(t, f.sink.popupDone, popup)
}

func mustPopup(t *testing.T, f *fixture, id wire.SurfaceID) *shell.Popup {
	t.Helper()
	p, ok := f.server.shell.Popup(id)
	require.True(t, ok)
	return p
}

func TestKeybindingConsumesKey(t *testing.T) {
	f := newFixture(t, testOutput())
	f.mapToplevel(1)

	var seen []uint32
	f.server.SetKeybinding(func(key uint32, mods wire.Modifiers) bool {
		seen = append(seen, key)
		return key == 42
	})

	f.server.handleEvent(backend.KeyboardKey{Key: 42, State: wire.KeyPressed})
	f.server.handleEvent(backend.KeyboardKey{Key: 7, State: wire.KeyPressed})

	assert.Equal(t, []uint32{42, 7}, seen)
	assert.Equal(t, []uint32{7}, f.sink.keys, "consumed key leaked to the client")
}

func TestCursorClampedToLayout(t *testing.T) {
	f := newFixture(t, testOutput())

	f.server.handleEvent(backend.PointerMotionAbsolute{X: 5000, Y: -50})
	x, y := f.server.seat.PointerPosition()
	assert.Equal(t, float64(999), x)
	assert.Equal(t, float64(0), y)

	f.server.handleEvent(backend.PointerMotion{DX: -10000, DY: 400})
	x, y = f.server.seat.PointerPosition()
	assert.Equal(t, float64(0), x)
	assert.Equal(t, float64(400), y)
}

func TestFullscreenUsesOutputGeometry(t *testing.T) {
	f := newFixture(t, testOutput())
	id := f.mapToplevel(1)
	base := wire.Base{From: 1}

	require.NoError(t, f.dispatch(wire.SetFullscreen{Base: base, Surface: id, Fullscreen: true}))
	cfg := f.sink.lastFor(t, id)
	assert.Equal(t, generaldata.Vector2i{X: 1000, Y: 800}, cfg.size)
	assert.NotZero(t, cfg.states&wire.StateFullscreen)
}

// Do hands closures to the loop goroutine; it is the only way code
// outside of Run may touch engine state
func TestDoRunsOnLoop(t *testing.T) {
	b := virtual.New(0, testOutput())
	s := NewServer(b, virtual.NewRecorder(), &recordingSink{})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	s.Do(func() { s.WM().SetMode(wm.ModePreview) })
	var mode wm.Mode
	s.Do(func() { mode = s.WM().Mode() })
	assert.Equal(t, wm.ModePreview, mode)

	s.Stop()
	require.NoError(t, <-done)

	// After shutdown Do drops the closure instead of blocking
	ran := false
	s.Do(func() { ran = true })
	assert.False(t, ran)
}

func TestCursorRoleStoresHotspot(t *testing.T) {
	f := newFixture(t, testOutput())
	sf := f.server.reg.Create(1)
	base := wire.Base{From: 1}

	require.NoError(t, f.dispatch(wire.SetCursorRole{
		Base:    base,
		Surface: sf.ID(),
		Hotspot: generaldata.Vector2i{X: 3, Y: 5},
	}))
	assert.Equal(t, sf.ID(), f.server.seat.CursorSurface())
	assert.Equal(t, generaldata.Vector2i{X: 3, Y: 5}, f.server.seat.CursorHotspot())

	f.server.reg.Destroy(sf.ID())
	assert.Equal(t, wire.NoSurface, f.server.seat.CursorSurface())
}

func TestNotificationsReachWatchers(t *testing.T) {
	f := newFixture(t, testOutput())
	ch, err := f.server.Watch("test")
	require.NoError(t, err)
	defer f.server.Unwatch("test")

	f.mapToplevel(1)
	select {
	case n := <-ch:
		assert.Equal(t, "map", n.Kind)
	default:
		t.Fatalf("No notification published for map")
	}
}
