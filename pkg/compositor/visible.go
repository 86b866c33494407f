package compositor

// computeVisible resolves, for every window, the sub-rectangles actually
// visible on screen: the window's screen-clipped bounds minus the bounds
// of every window painted after it. Input is the effective paint order,
// back to front, so tier and focus rules are already encoded in the
// slice. Hidden and zero-size windows neither receive nor occlude.
//
// The result satisfies the coverage invariant: each screen cell appears
// in at most one window's set, the topmost window covering it. A window
// with an empty set is fully covered and skips painting entirely.
func computeVisible(ordered []*Window, screen Rect) map[string][]Rect {
	out := make(map[string][]Rect, len(ordered))

	for i, w := range ordered {
		if w.hidden || !w.validSize() {
			out[w.id] = nil
			continue
		}

		base := w.bounds.Intersect(screen)
		if base.IsEmpty() {
			out[w.id] = nil
			continue
		}

		candidate := []Rect{base}
		for _, above := range ordered[i+1:] {
			if above.hidden || !above.validSize() {
				continue
			}
			if !above.bounds.Intersects(base) {
				continue
			}
			candidate = subtractAll(candidate, above.bounds)
			if len(candidate) == 0 {
				break
			}
		}
		out[w.id] = candidate
	}

	return out
}

// visibleArea sums the cells covered by a visible set.
func visibleArea(set []Rect) int {
	total := 0
	for _, r := range set {
		total += r.Area()
	}
	return total
}
