// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package generaldata

// A point or size in integer logical coordinates
type Vector2i struct {
	X int
	Y int
}

// A point in floating point layout coordinates
type Vector2f struct {
	X float64
	Y float64
}

func (v Vector2i) Add(other Vector2i) Vector2i {
	return Vector2i{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vector2i) Sub(other Vector2i) Vector2i {
	return Vector2i{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v Vector2f) ToInt() Vector2i {
	return Vector2i{X: int(v.X), Y: int(v.Y)}
}
