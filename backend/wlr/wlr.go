// Package wlr runs the engine against real hardware through wlroots.
// Device and display events are normalized into the shared backend
// vocabulary and merged onto a single channel, so the loop never sees
// which variant it is running on.
package wlr

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/swaywm/go-wlroots/xkb"

	"github.com/aurorawm/aurora/backend"
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/util/multiplexer"
	"github.com/aurorawm/aurora/wire"
)

type wlrOutput struct {
	out   wlroots.Output
	scene wlroots.SceneOutput
	size  generaldata.Vector2i
}

type target struct {
	size generaldata.Vector2i
}

func (t *target) Size() generaldata.Vector2i { return t.size }

// Backend drives outputs and input devices through wlroots. Cursor
// aggregation and keymap handling follow the usual wlroots shape; the
// engine only sees the normalized events.
type Backend struct {
	display     wlroots.Display
	wlrBackend  wlroots.Backend
	renderer    wlroots.Renderer
	allocator   wlroots.Allocator
	scene       wlroots.Scene
	sceneLayout wlroots.SceneOutputLayout

	cursor       wlroots.Cursor
	cursorMgr    wlroots.XCursorManager
	outputLayout wlroots.OutputLayout

	mu        sync.Mutex
	outputs   map[string]*wlrOutput
	keyboards int

	events chan backend.Event
	plexer *multiplexer.ManyToOne[backend.Event]
}

func New() (*Backend, error) {
	b := &Backend{
		outputs: make(map[string]*wlrOutput),
	}
	b.events = make(chan backend.Event, 256)
	b.plexer = multiplexer.NewManyToOne(b.events)

	var err error
	b.display = wlroots.NewDisplay()
	b.wlrBackend, err = b.display.BackendAutocreate()
	if err != nil {
		return nil, errors.Wrap(err, "autocreating wlroots backend")
	}
	b.renderer, err = b.wlrBackend.RendererAutoCreate()
	if err != nil {
		return nil, errors.Wrap(err, "autocreating renderer")
	}
	b.renderer.InitDisplay(b.display)
	b.allocator, err = b.wlrBackend.AllocatorAutocreate(b.renderer)
	if err != nil {
		return nil, errors.Wrap(err, "autocreating allocator")
	}

	b.outputLayout = wlroots.NewOutputLayout()
	b.scene = wlroots.NewScene()
	b.sceneLayout = b.scene.AttachOutputLayout(b.outputLayout)

	b.cursor = wlroots.NewCursor()
	b.cursor.AttachOutputLayout(b.outputLayout)
	b.cursorMgr = wlroots.NewXCursorManager("", 24)
	b.cursorMgr.Load(1)

	b.cursor.OnMotion(func(dev wlroots.InputDevice, time uint32, dx float64, dy float64) {
		b.plexer.Send(backend.PointerMotion{Time: time, DX: dx, DY: dy})
	})
	b.cursor.OnMotionAbsolute(func(dev wlroots.InputDevice, time uint32, x float64, y float64) {
		b.plexer.Send(backend.PointerMotionAbsolute{Time: time, X: x, Y: y})
	})
	b.cursor.OnButton(func(dev wlroots.InputDevice, time uint32, button uint32, state wlroots.ButtonState) {
		bs := wire.ButtonPressed
		if state == wlroots.ButtonStateReleased {
			bs = wire.ButtonReleased
		}
		b.plexer.Send(backend.PointerButton{Time: time, Button: button, State: bs})
	})
	b.cursor.OnAxis(func(dev wlroots.InputDevice, time uint32, source wlroots.AxisSource, orientation wlroots.AxisOrientation, delta float64, deltaDiscrete int32) {
		b.plexer.Send(backend.PointerAxis{
			Time:       time,
			Horizontal: orientation == wlroots.AxisOrientationHorizontal,
			Delta:      delta,
		})
	})

	b.wlrBackend.OnNewOutput(b.handleNewOutput)
	b.wlrBackend.OnNewInput(b.handleNewInput)

	return b, nil
}

func (b *Backend) handleNewOutput(out wlroots.Output) {
	logrus.WithField("name", out.Name()).Debugln("New output added")

	out.InitRender(b.allocator, b.renderer)

	oState := wlroots.NewOutputState()
	oState.StateInit()
	oState.StateSetEnabled(true)

	size := generaldata.Vector2i{}
	preferred, err := out.PrefferedMode()
	modes := []output.Mode{}
	if err == nil {
		oState.SetMode(preferred)
		size = generaldata.Vector2i{X: int(preferred.Width()), Y: int(preferred.Height())}
		modes = append(modes, output.Mode{
			Size:       size,
			RefreshMHz: int(preferred.Refresh()),
			Preferred:  true,
		})
	}
	out.CommitState(oState)
	oState.Finish()

	lOutput := b.outputLayout.AddOutputAuto(out)
	sceneOutput := b.scene.NewOutput(out)
	b.sceneLayout.AddOutput(lOutput, sceneOutput)

	o := &wlrOutput{out: out, scene: sceneOutput, size: size}
	b.mu.Lock()
	b.outputs[out.Name()] = o
	b.mu.Unlock()

	out.OnFrame(func(out wlroots.Output) {
		b.plexer.TrySend(backend.Frame{Name: out.Name()})
	})
	out.OnRequestState(func(out wlroots.Output, state wlroots.OutputState) {
		out.CommitState(state)
	})
	out.OnDestroy(func(out wlroots.Output) {
		name := out.Name()
		b.mu.Lock()
		delete(b.outputs, name)
		b.mu.Unlock()
		b.plexer.Send(backend.OutputRemoved{Name: name})
	})

	var mode output.Mode
	if len(modes) > 0 {
		mode = modes[0]
	}
	b.plexer.Send(backend.OutputAdded{
		Name:  out.Name(),
		Mode:  mode,
		Modes: modes,
		Scale: 1,
	})
}

func (b *Backend) handleNewInput(dev wlroots.InputDevice) {
	switch dev.Type() {
	case wlroots.InputDeviceTypePointer:
		b.cursor.AttachInputDevice(dev)
	case wlroots.InputDeviceTypeKeyboard:
		b.handleNewKeyboard(dev)
	}
}

func (b *Backend) handleNewKeyboard(dev wlroots.InputDevice) {
	keyboard := dev.Keyboard()

	// Default keymap, layout = "us"
	context := xkb.NewContext(xkb.KeySymFlagNoFlags)
	keymap := context.KeyMap()
	keyboard.SetKeymap(keymap)
	keymap.Destroy()
	context.Destroy()
	keyboard.SetRepeatInfo(25, 600)

	keyboard.OnKey(func(keyboard wlroots.Keyboard, time uint32, keyCode uint32, updateState bool, state wlroots.KeyState) {
		ks := wire.KeyPressed
		if state != wlroots.KeyStatePressed {
			ks = wire.KeyReleased
		}
		b.plexer.Send(backend.KeyboardKey{Time: time, Key: keyCode, State: ks})
	})
	keyboard.OnModifiers(func(keyboard wlroots.Keyboard) {
		b.plexer.Send(backend.KeyboardModifiers{Mods: translateModifiers(keyboard.Modifiers())})
	})

	b.mu.Lock()
	b.keyboards++
	b.mu.Unlock()
}

func translateModifiers(raw wlroots.KeyboardModifier) wire.Modifiers {
	var mods wire.Modifiers
	if raw&wlroots.KeyboardModifierShift != 0 {
		mods |= wire.ModShift
	}
	if raw&wlroots.KeyboardModifierCtrl != 0 {
		mods |= wire.ModCtrl
	}
	if raw&wlroots.KeyboardModifierAlt != 0 {
		mods |= wire.ModAlt
	}
	if raw&wlroots.KeyboardModifierLogo != 0 {
		mods |= wire.ModLogo
	}
	return mods
}

func (b *Backend) Start() error {
	if err := b.wlrBackend.Start(); err != nil {
		b.wlrBackend.Destroy()
		b.display.Destroy()
		return errors.Wrap(err, "starting wlroots backend")
	}
	// The wlroots event loop owns its own thread; everything it
	// produces crosses into the engine through the multiplexer
	go b.display.Run()
	logrus.Infoln("Hardware backend running")
	return nil
}

func (b *Backend) Events() <-chan backend.Event {
	return b.events
}

func (b *Backend) Caps() surface.BufferCaps {
	return surface.BufferCaps{
		Formats: []wire.PixelFormat{wire.FormatARGB8888, wire.FormatXRGB8888, wire.FormatRGB565},
		MaxSize: generaldata.Vector2i{X: 16384, Y: 16384},
	}
}

func (b *Backend) BeginFrame(name string) (backend.RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.outputs[name]
	if !ok {
		return nil, errors.Wrapf(backend.ErrOutputNotReady, "output %s", name)
	}
	return &target{size: o.size}, nil
}

// Present commits the scene output. Damage tracking on the hardware
// path is wlroots' job; the engine's own damage accounting still
// gates whether a frame is scheduled at all.
func (b *Backend) Present(name string) error {
	b.mu.Lock()
	o, ok := b.outputs[name]
	b.mu.Unlock()
	if !ok {
		return errors.Wrapf(backend.ErrOutputNotReady, "output %s", name)
	}
	o.scene.Commit()
	o.scene.SendFrameDone(time.Now())
	return nil
}

// Renderer returns the scene backed renderer for this backend. Buffers
// reach the screen through the wlroots scene graph, so the per item
// draw here is a no-op.
func (b *Backend) Renderer() backend.Renderer {
	return sceneRenderer{}
}

type sceneRenderer struct{}

func (sceneRenderer) Render(_ backend.RenderTarget, _ []backend.RenderItem, _ generaldata.Region) error {
	return nil
}

func (b *Backend) Close() error {
	b.display.Terminate()
	b.display.DestroyClients()
	b.scene.Tree().Node().Destroy()
	b.cursorMgr.Destroy()
	b.outputLayout.Destroy()
	b.display.Destroy()
	b.plexer.Close()
	return nil
}
