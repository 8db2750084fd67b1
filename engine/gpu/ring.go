package gpu

// Ring holds one value per in-flight frame. The frame-driving goroutine owns the slot of
// the frame it is building; the renderer owns every other slot until that frame retires.
type Ring[T any] struct {
	slots []T
}

// NewRing creates a ring of n slots, each initialized by fill.
//
// Parameters:
//   - n: number of slots (minimum 1)
//   - fill: constructor called once per slot index
//
// Returns:
//   - Ring[T]: the new ring
func NewRing[T any](n int, fill func(i int) T) Ring[T] {
	n = max(n, 1)
	r := Ring[T]{slots: make([]T, n)}
	for i := range r.slots {
		r.slots[i] = fill(i)
	}
	return r
}

// Len returns the number of slots.
func (r Ring[T]) Len() int {
	return len(r.slots)
}

// At returns the slot for a frame index; any non-negative index is wrapped.
func (r Ring[T]) At(frame int) T {
	return r.slots[frame%len(r.slots)]
}

// Set replaces the slot for a frame index.
func (r Ring[T]) Set(frame int, v T) {
	r.slots[frame%len(r.slots)] = v
}

// Each calls fn for every slot in order.
func (r Ring[T]) Each(fn func(i int, v T)) {
	for i, v := range r.slots {
		fn(i, v)
	}
}
