package game

// GamePhase is the stage of a round the table is in.
type GamePhase string

const (
	PhaseDraft         GamePhase = "draft"
	PhaseSpy           GamePhase = "spy"
	PhaseHermit        GamePhase = "hermit"
	PhaseLiar          GamePhase = "liar"
	PhaseBlindAssassin GamePhase = "blindAssassin"
	PhaseJonin         GamePhase = "jonin"
	PhaseReveal        GamePhase = "reveal"
)

// Phases lists the phases of a round in play order.
var Phases = []GamePhase{
	PhaseDraft, PhaseSpy, PhaseHermit, PhaseLiar, PhaseBlindAssassin, PhaseJonin, PhaseReveal,
}

func (p GamePhase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// Next returns the phase after p, wrapping from reveal back to draft.
func (p GamePhase) Next() GamePhase {
	for i, known := range Phases {
		if p == known {
			return Phases[(i+1)%len(Phases)]
		}
	}
	return PhaseDraft
}
