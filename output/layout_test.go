package output

import (
	"testing"

	generaldata "github.com/aurorawm/aurora/general-data"
)

func mode(w, h int) Mode {
	return Mode{Size: generaldata.Vector2i{X: w, Y: h}, RefreshMHz: 60000, Preferred: true}
}

// Outputs auto-placed left to right in arrival order
func TestAddAutoRow(t *testing.T) {
	l := NewLayout()
	a := l.AddAuto("a", mode(1920, 1080), nil, 1)
	b := l.AddAuto("b", mode(1280, 720), nil, 1)

	if a.Position() != (generaldata.Vector2i{}) {
		t.Errorf("First output at %+v, want origin", a.Position())
	}
	if b.Position() != (generaldata.Vector2i{X: 1920}) {
		t.Errorf("Second output at %+v, want to the right of the first", b.Position())
	}
	if l.At(2000, 100) != b {
		t.Errorf("Hit test missed the second output")
	}
	if l.At(5000, 100) != nil {
		t.Errorf("Hit test found an output where there is none")
	}
}

func TestRemoveKeepsPositions(t *testing.T) {
	l := NewLayout()
	a := l.AddAuto("a", mode(1000, 1000), nil, 1)
	b := l.AddAuto("b", mode(1000, 1000), nil, 1)

	if l.Remove(a.ID()) != a {
		t.Fatalf("Remove returned the wrong output")
	}
	if l.ByName("a") != nil {
		t.Errorf("Removed output still resolvable")
	}
	if b.Position() != (generaldata.Vector2i{X: 1000}) {
		t.Errorf("Survivor moved to %+v", b.Position())
	}
	if l.First() != b {
		t.Errorf("First is not the survivor")
	}
	l.Remove(b.ID())
	if l.First() != nil {
		t.Errorf("First on an empty layout is not nil")
	}
}

// A fresh output starts fully damaged and damage only clears on request
func TestDamageLifecycle(t *testing.T) {
	l := NewLayout()
	o := l.AddAuto("a", mode(800, 600), nil, 1)

	if !o.Dirty() {
		t.Fatalf("New output should start fully damaged")
	}
	o.ClearDamage()
	if o.Dirty() {
		t.Fatalf("Damage survived the clear")
	}

	o.AddDamageRect(generaldata.NewRect(10, 10, 20, 20))
	o.AddDamageRect(generaldata.NewRect(12, 12, 5, 5))
	if !o.Dirty() {
		t.Fatalf("Damage not accumulated")
	}
	if len(o.Damage().Rects()) != 1 {
		t.Errorf("Covered damage rect was not absorbed")
	}

	o.SetMode(mode(1024, 768))
	if !o.Damage().Contains(generaldata.Vector2i{X: 1000, Y: 700}) {
		t.Errorf("Mode change did not damage the whole new size")
	}
}
