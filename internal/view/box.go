package view

import "math"

// Box is an element's bounding box in CSS pixels relative to the viewport.
type Box struct {
	X, Y, W, H float64
}

// Key is a box's top-left corner rounded to whole pixels.
type Key struct {
	X, Y int
}

// Key rounds the top-left corner, half away from zero.
func (b Box) Key() Key {
	return Key{X: int(math.Round(b.X)), Y: int(math.Round(b.Y))}
}
