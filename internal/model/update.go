package model

// UpdatePhase is the state of the update coordinator.
type UpdatePhase string

const (
	PhaseCurrent       UpdatePhase = "current"
	PhasePendingReview UpdatePhase = "pending_review"
	PhaseActivating    UpdatePhase = "activating"
)

// UpdateState is the persisted record of the update coordinator.
// PendingGeneration is promoted only after ActivationConfirmed is set and
// every older generation has been evicted.
type UpdateState struct {
	CurrentGeneration   string      `json:"current_generation"`
	PendingGeneration   string      `json:"pending_generation,omitempty"`
	ActivationConfirmed bool        `json:"activation_confirmed"`
	Phase               UpdatePhase `json:"phase"`
	// Dismissed hides the update affordance without changing Phase.
	Dismissed bool `json:"dismissed,omitempty"`
}

// HasPendingUpdate reports whether a newer generation waits for confirmation.
func (s UpdateState) HasPendingUpdate() bool {
	return s.Phase == PhasePendingReview && s.PendingGeneration != ""
}
