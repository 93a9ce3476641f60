package workspace

// epoch is a monotonically increasing marker for one mutable resource.
// A completion captured at issue time is applied only if the epoch has not
// moved since.
type epoch struct {
	n uint64
}

func (e *epoch) next() uint64 {
	e.n++
	return e.n
}

func (e *epoch) current(n uint64) bool {
	return e.n == n
}
