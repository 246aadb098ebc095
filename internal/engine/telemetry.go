package engine

import "log/slog"

// Iteration is the telemetry record of one simplex iteration.
type Iteration struct {
	Number        int
	Phase         Phase
	Algorithm     Algorithm
	Entering      int
	Leaving       int
	PrimalStep    float64
	DualStep      float64
	Objective     float64
	Infeasibility float64
	Flips         int
	BoundFlip     bool
	Bad           bool
}

// Observer receives every iteration record. It runs on the solver
// goroutine and must not retain the record beyond the call.
type Observer func(Iteration)

// LogValue implements slog.LogValuer.
func (it Iteration) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("n", it.Number),
		slog.String("phase", it.Phase.String()),
		slog.String("algorithm", it.Algorithm.String()),
		slog.Int("in", it.Entering),
		slog.Int("out", it.Leaving),
		slog.Float64("primal_step", it.PrimalStep),
		slog.Float64("dual_step", it.DualStep),
		slog.Float64("objective", it.Objective),
		slog.Float64("infeasibility", it.Infeasibility),
		slog.Int("flips", it.Flips),
	)
}
