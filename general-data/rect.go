// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package generaldata

// A rectangle in logical coordinates. Width and Height of zero or less
// mean the rectangle is empty
type Rect struct {
	Pos  Vector2i
	Size Vector2i
}

func NewRect(x, y, w, h int) Rect {
	return Rect{Pos: Vector2i{X: x, Y: y}, Size: Vector2i{X: w, Y: h}}
}

func (r Rect) Empty() bool {
	return r.Size.X <= 0 || r.Size.Y <= 0
}

func (r Rect) Right() int {
	return r.Pos.X + r.Size.X
}

func (r Rect) Bottom() int {
	return r.Pos.Y + r.Size.Y
}

// Contains reports whether the point lies inside the rectangle.
// The right and bottom edges are exclusive
func (r Rect) Contains(p Vector2i) bool {
	return p.X >= r.Pos.X && p.X < r.Right() && p.Y >= r.Pos.Y && p.Y < r.Bottom()
}

func (r Rect) ContainsF(x, y float64) bool {
	return x >= float64(r.Pos.X) && x < float64(r.Right()) && y >= float64(r.Pos.Y) && y < float64(r.Bottom())
}

func (r Rect) Intersects(other Rect) bool {
	if r.Empty() || other.Empty() {
		return false
	}
	return r.Pos.X < other.Right() && other.Pos.X < r.Right() &&
		r.Pos.Y < other.Bottom() && other.Pos.Y < r.Bottom()
}

// Intersect returns the overlapping area of both rectangles.
// Returns an empty rect if they don't overlap
func (r Rect) Intersect(other Rect) Rect {
	x1 := max(r.Pos.X, other.Pos.X)
	y1 := max(r.Pos.Y, other.Pos.Y)
	x2 := min(r.Right(), other.Right())
	y2 := min(r.Bottom(), other.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return NewRect(x1, y1, x2-x1, y2-y1)
}

func (r Rect) Translate(by Vector2i) Rect {
	return Rect{Pos: r.Pos.Add(by), Size: r.Size}
}
