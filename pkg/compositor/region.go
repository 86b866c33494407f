package compositor

// Rect is an axis-aligned rectangle in terminal cell coordinates.
// A rectangle with non-positive width or height is empty.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsEmpty reports whether the rectangle covers no cells.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the exclusive right edge.
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Intersects reports whether the two rectangles share any cell.
func (r Rect) Intersects(other Rect) bool {
	return !r.Intersect(other).IsEmpty()
}

// Intersect returns the overlap of two rectangles, empty if disjoint.
func (r Rect) Intersect(other Rect) Rect {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.Right(), other.Right())
	y2 := min(r.Bottom(), other.Bottom())

	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Subtract returns the parts of r not covered by other, as at most four
// disjoint rectangles: the bands above and below the overlap, then the
// left and right remainders beside it.
func (r Rect) Subtract(other Rect) []Rect {
	overlap := r.Intersect(other)
	if overlap.IsEmpty() {
		if r.IsEmpty() {
			return nil
		}
		return []Rect{r}
	}
	if overlap == r {
		return nil
	}

	out := make([]Rect, 0, 4)

	if overlap.Y > r.Y {
		out = append(out, Rect{X: r.X, Y: r.Y, Width: r.Width, Height: overlap.Y - r.Y})
	}
	if overlap.Bottom() < r.Bottom() {
		out = append(out, Rect{X: r.X, Y: overlap.Bottom(), Width: r.Width, Height: r.Bottom() - overlap.Bottom()})
	}
	if overlap.X > r.X {
		out = append(out, Rect{X: r.X, Y: overlap.Y, Width: overlap.X - r.X, Height: overlap.Height})
	}
	if overlap.Right() < r.Right() {
		out = append(out, Rect{X: overlap.Right(), Y: overlap.Y, Width: r.Right() - overlap.Right(), Height: overlap.Height})
	}

	return out
}

// subtractAll removes other from every rectangle in the set.
func subtractAll(set []Rect, other Rect) []Rect {
	out := make([]Rect, 0, len(set))
	for _, r := range set {
		out = append(out, r.Subtract(other)...)
	}
	return out
}

// Area returns the number of cells the rectangle covers.
func (r Rect) Area() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}
