package virtual

import (
	"sync"

	"github.com/aurorawm/aurora/backend"
	generaldata "github.com/aurorawm/aurora/general-data"
)

// Discard is a renderer for long running virtual sessions: accepts
// every pass and keeps nothing
type Discard struct{}

func (Discard) Render(backend.RenderTarget, []backend.RenderItem, generaldata.Region) error {
	return nil
}

// Pass is one recorded render pass
type Pass struct {
	TargetSize generaldata.Vector2i
	Items      []backend.RenderItem
	Damage     generaldata.Region
}

// Recorder is a renderer that draws nothing and remembers everything.
// Tests assert on the recorded passes instead of pixels.
type Recorder struct {
	mu     sync.Mutex
	passes []Pass
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Render(target backend.RenderTarget, items []backend.RenderItem, damage generaldata.Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, Pass{
		TargetSize: target.Size(),
		Items:      append([]backend.RenderItem(nil), items...),
		Damage:     damage.Copy(),
	})
	return nil
}

// Passes returns everything rendered so far
func (r *Recorder) Passes() []Pass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Pass(nil), r.passes...)
}

// Last returns the most recent pass, if any
func (r *Recorder) Last() (Pass, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.passes) == 0 {
		return Pass{}, false
	}
	return r.passes[len(r.passes)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = nil
}
