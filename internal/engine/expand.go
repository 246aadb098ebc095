package engine

// expandCycle is the number of iterations over which the working
// tolerance grows from its initial to its maximal value.
const expandCycle = 10000

// expandTolerance is the working tolerance τ of the two-pass ratio tests.
// τ starts at half the base tolerance, grows every iteration and wraps back
// once it reaches 0.99 of the base tolerance.
type expandTolerance struct {
	initial float64
	max     float64
	step    float64
	value   float64
}

func newExpandTolerance(base float64) *expandTolerance {
	e := &expandTolerance{
		initial: 0.5 * base,
		max:     0.99 * base,
	}
	e.step = (e.max - e.initial) / expandCycle
	e.Reset()
	return e
}

// Value returns the current working tolerance.
func (e *expandTolerance) Value() float64 { return e.value }

// Advance grows τ and reports whether it wrapped back to the initial value.
func (e *expandTolerance) Advance() bool {
	e.value += e.step
	if e.value >= e.max {
		e.Reset()
		return true
	}
	return false
}

// Reset puts τ back to its initial value.
func (e *expandTolerance) Reset() { e.value = e.initial }
