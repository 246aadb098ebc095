package engine

// Status is the terminal state of a solve.
type Status int

const (
	Running Status = iota
	Optimal
	PrimalInfeasible
	DualInfeasible
	IterationLimit
	TimeLimit
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Optimal:
		return "Optimal"
	case PrimalInfeasible:
		return "PrimalInfeasible"
	case DualInfeasible:
		return "DualInfeasible"
	case IterationLimit:
		return "IterationLimit"
	case TimeLimit:
		return "TimeLimit"
	default:
		return "Unknown"
	}
}

// Phase is the simplex phase of an iteration.
type Phase int

const (
	Phase1 Phase = iota + 1
	Phase2
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case Phase1:
		return "Phase1"
	case Phase2:
		return "Phase2"
	default:
		return "Unknown"
	}
}

// VarState is the partition a variable belongs to.
type VarState int

const (
	Basic VarState = iota
	AtLower
	AtUpper
	NonbasicFree
	NonbasicFixed
	numVarStates
)

// String returns a human-readable representation of the state.
func (s VarState) String() string {
	switch s {
	case Basic:
		return "Basic"
	case AtLower:
		return "AtLower"
	case AtUpper:
		return "AtUpper"
	case NonbasicFree:
		return "NonbasicFree"
	case NonbasicFixed:
		return "NonbasicFixed"
	default:
		return "Unknown"
	}
}

// Feasibility classes of basic positions.
const (
	BelowLower = iota
	AboveUpper
	Feasible
	numFeasibility
)
